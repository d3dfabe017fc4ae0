package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/version"
)

type versionResponse struct {
	Service string `json:"service"`
	version.Info
	Uptime string `json:"uptime"`
}

// Version reports build information and how long the process has served
// since started.
func Version(serviceName string, started time.Time) gin.HandlerFunc {
	info := version.Get()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, versionResponse{
			Service: serviceName,
			Info:    info,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		})
	}
}
