package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the body of a failed request
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError under the "error" key
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes an error envelope. Messages of server errors are
// replaced with the status text, the cause is only logged.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	switch {
	case status >= http.StatusInternalServerError:
		msg = http.StatusText(status)
	case err != nil:
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK writes payload as a 200 JSON response
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// fail logs err with the request context and responds with a 500 envelope
func (h *Handler) fail(c *gin.Context, code, msg string, err error, keysAndValues ...interface{}) {
	fields := append([]interface{}{"error", err, "path", c.Request.URL.Path, "code", code}, keysAndValues...)
	h.log.Error(msg, fields...)
	RespondError(c, http.StatusInternalServerError, code, err)
}
