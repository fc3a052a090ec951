package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/logging"
)

// Envelope is the body of every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func Respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// RespondError renders err as a failure envelope and aborts the chain.
// Server side failures are logged with their cause.
func RespondError(c *gin.Context, err error) {
	apiErr := apierror.From(err)
	logger := logging.FromContext(c.Request.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", apiErr.Kind, "message", apiErr.Message, "error", apiErr.Err)
	} else {
		logger.Debug("request rejected", "kind", apiErr.Kind, "message", apiErr.Message)
	}

	errs := apiErr.Errors
	if errs == nil {
		errs = []string{}
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorEnvelope{
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
		Success:    false,
		Errors:     errs,
	})
}
