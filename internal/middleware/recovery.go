package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 instead of killing the process.
// No error in this service is allowed to be fatal.
func Recovery(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("handler panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
