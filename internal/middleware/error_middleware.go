package middleware

import (
	"net/http"

	"github.com/UthayakumarDevon/livechatapp/internal/transport/httpdto"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		code := chat_errors.Code(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
