package middleware

import (
	"errors"

	apiError "doc-tracker/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var apiErr *apiError.APIError
		if !errors.As(err, &apiErr) {
			// If it's a raw error we didn't wrap, treat as Internal
			apiErr = apiError.Internal(err)
		}

		fields := []zap.Field{
			zap.Int("status", apiErr.Status),
			zap.String("path", c.Request.URL.Path),
		}
		if apiErr.Internal != nil {
			fields = append(fields, zap.Error(apiErr.Internal))
		}

		if apiErr.Status >= 500 {
			log.Error(apiErr.Message, fields...)
		} else {
			log.Info(apiErr.Message, fields...)
		}

		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
