package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

// HandleError maps domain and platform errors onto HTTP responses.
// Validation failures are logged at debug level.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()

	if errors.Is(err, conversation.ErrNotFound) {
		platformerrors.WriteNotFound(c, message)
		return
	}
	if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		logger.Debug().Err(err).Msg("rejected request")
		platformerrors.WriteValidationError(c, platformerrors.GetPlatformError(err).Message)
		return
	}
	platformerrors.WriteError(c, err, logger)
}
