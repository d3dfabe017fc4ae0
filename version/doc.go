// Package version reports build information for streamkit binaries.
package version
