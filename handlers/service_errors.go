package handlers

import (
	"net/http"
	"time"

	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Business errors
// carry their message to the client; anything else is logged and answered
// with an opaque 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := services.PublicMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsAuthenticationError(err):
		writeErr = utils.WriteError(w, http.StatusUnauthorized, message, map[string]interface{}{
			"reason": string(services.GetErrorType(err)),
		})

	case services.IsForbiddenError(err), services.IsOwnershipError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, message, retryAfter(details), details)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsBusinessRuleError(err):
		writeErr = utils.WriteUnprocessable(w, message, details)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, message)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "unexpected error")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

func retryAfter(details map[string]interface{}) time.Duration {
	s, _ := details["retry_after"].(string)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
