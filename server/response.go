package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/streamkit/errors"
)

// RespondWithError aborts the gin chain and writes err in the shared error
// envelope. Errors that are not AppErrors are reported as internal.
func RespondWithError(c *gin.Context, err error) {
	c.Abort()
	apperrors.Write(c.Writer, err)
}

// RespondOK writes {"data": data} with status 200.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}
