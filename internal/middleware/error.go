package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/orms-api/pkg/httputil"
)

// ErrorHandler renders the last error a handler pushed with c.Error as
// {"error": message}. Every error is logged; only the rendered message
// reaches the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := GetRequestID(c)
		for _, e := range c.Errors {
			status, _ := httputil.Status(e.Err)
			var event *zerolog.Event
			if status >= 500 {
				event = log.Error()
			} else {
				event = log.Debug()
			}
			event.
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Int("status", status).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
