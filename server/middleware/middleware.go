package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// Middleware decorates an http.Handler. It is applied outside gin so that
// mounted event streams pass through it too.
type Middleware func(http.Handler) http.Handler

// Chain composes mw so that mw[0] sees the request first.
func Chain(mw ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, m := range slices.Backward(mw) {
			h = m(h)
		}
		return h
	}
}

// GinWrap runs mw as a gin handler, for middleware that only applies to
// some routes. The chain is aborted when mw answers without calling next.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}
