// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Ключи Locals.
const (
	LocalsRequestContext = "requestContext"
	LocalsUserID         = "userID"
)

// RequestContext возвращает контекст запроса с логгером и request id.
func RequestContext(c fiber.Ctx) context.Context {
	if ctx, ok := c.Locals(LocalsRequestContext).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// UserID возвращает пользователя, прошедшего аутентификацию.
func UserID(c fiber.Ctx) (string, bool) {
	id, ok := c.Locals(LocalsUserID).(string)
	return id, ok && id != ""
}
