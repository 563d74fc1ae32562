package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/middleware"
	"engagement-tracker/internal/models"
)

// render: обёртка над c.JSON.
func render(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// renderError переводит ошибки хранилища в HTTP-статусы; к ответу
// добавляется request id, чтобы найти запрос в логах.
func renderError(c *gin.Context, err error) {
	renderErrorAs(c, err, "Проект не найден")
}

// renderErrorAs: как renderError, но со своим текстом для 404.
func renderErrorAs(c *gin.Context, err error, notFoundMsg string) {
	status := http.StatusInternalServerError
	msg := "Внутренняя ошибка сервера"

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, notFoundMsg
	case errors.Is(err, models.ErrValidation):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	default:
		logging.New("http").Error("request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(middleware.RequestIDKey),
			"err", err,
		)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": c.GetString(middleware.RequestIDKey),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":      msg,
		"request_id": c.GetString(middleware.RequestIDKey),
	})
}
