package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-core/internal/logger"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно: статус и сообщение
// берутся из apperror, внутренние детали наружу не уходят.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.StatusOf(err)

		if logger.Log != nil {
			entry := logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"status": status,
			})
			if status >= 500 {
				entry.Error("ошибка обработки запроса")
			} else {
				entry.Warn("запрос отклонён")
			}
		}

		c.JSON(status, gin.H{"error": apperror.MessageOf(err)})
	}
}
