// Package response формирует JSON ответы и коды статуса HTTP API.
package response

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/adapters/http/middleware"
	"sheetnotes/internal/notes/app"
	"sheetnotes/pkg/logger"
)

// LogRequestError сообщение лога для ошибок обработчиков.
const LogRequestError = "request error"

// ErrorBody тело ответа с ошибкой.
type ErrorBody struct {
	Error string   `json:"error"`
	Kind  app.Kind `json:"kind,omitempty"`
}

// Status код HTTP для класса ошибки.
func Status(kind app.Kind) int {
	switch kind {
	case app.KindUnreachable:
		return fiber.StatusServiceUnavailable
	case app.KindPermission:
		return fiber.StatusForbidden
	case app.KindNotFound:
		return fiber.StatusNotFound
	case app.KindServer:
		return fiber.StatusBadGateway
	case app.KindPending:
		return fiber.StatusConflict
	case app.KindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Error классифицирует err и отправляет сообщение для пользователя.
func Error(c fiber.Ctx, err error) error {
	ctx := middleware.RequestContext(c)
	classified := app.Classify(err)
	status := Status(classified.Kind)

	log := logger.Log(ctx).With(zap.String("kind", string(classified.Kind)), zap.Error(err))
	if status >= fiber.StatusInternalServerError {
		log.Error(ctx, LogRequestError)
	} else {
		log.Debug(ctx, LogRequestError)
	}

	return JSON(c, status, ErrorBody{Error: classified.Message, Kind: classified.Kind})
}

// BadRequest отправляет 400 с текстом msg.
func BadRequest(c fiber.Ctx, msg string) error {
	return JSON(c, fiber.StatusBadRequest, ErrorBody{Error: msg, Kind: app.KindValidation})
}

// JSON отправляет body со статусом status.
func JSON(c fiber.Ctx, status int, body any) error {
	if err := c.Status(status).JSON(body); err != nil {
		return fmt.Errorf("error sending response: %w", err)
	}
	return nil
}
