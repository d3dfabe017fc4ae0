// Package component defines the lifecycle interface shared by the parts of
// a streamkit binary and a Registry that starts them in order and stops
// them in reverse.
package component
