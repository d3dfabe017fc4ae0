package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/component"
)

// Readiness answers 503 with the failing component names while any
// component is unhealthy, so load balancers stop routing new streams.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var failing []string
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				if h.Status == component.StatusUnhealthy {
					failing = append(failing, h.Name)
				}
			}
		}

		body := gin.H{
			"status":    "ready",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if len(failing) > 0 {
			body["status"] = "not_ready"
			body["failing"] = failing
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}
