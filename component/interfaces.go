package component

import "context"

// HealthStatus is the coarse state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in the /health response.
type Health struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Healthy reports name as healthy; details may be nil.
func Healthy(name string, details map[string]any) Health {
	return Health{Name: name, Status: StatusHealthy, Details: details}
}

// Unhealthy reports name as unhealthy with message as the cause.
func Unhealthy(name, message string) Health {
	return Health{Name: name, Status: StatusUnhealthy, Message: message}
}

// Component is a long-lived part of a binary, started and stopped by a
// Registry. Name must be unique within the registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	// Stop must return once ctx is done even if draining is incomplete.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the line a component contributes to the startup log.
type Description struct {
	// Name defaults to Component.Name.
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components report themselves in the startup log.
type Describable interface {
	Describe() Description
}
