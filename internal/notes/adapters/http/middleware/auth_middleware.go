package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/ports/services"
	"sheetnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogAuthMiddleware = "auth middleware"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorInvalidToken       = "invalid token"
	ErrorExpiredToken       = "token has expired"
)

// NewAuthMiddleware проверяет bearer токен и кладет ID пользователя в Locals.
func NewAuthMiddleware(tokens services.TokenService) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := RequestContext(ctx)
		log := logger.Log(requestCtx).With(zap.String("middleware", "auth"))
		log.Debug(requestCtx, LogAuthMiddleware)

		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Debug(requestCtx, ErrorNoAuthHeader)
			return unauthorized(ctx, ErrorNoAuthHeader)
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			log.Debug(requestCtx, ErrorInvalidTokenFormat)
			return unauthorized(ctx, ErrorInvalidTokenFormat)
		}

		userID, err := tokens.ValidateAccessToken(requestCtx, strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, services.ErrExpiredJWTToken) {
				return unauthorized(ctx, ErrorExpiredToken)
			}
			return unauthorized(ctx, ErrorInvalidToken)
		}

		ctx.Locals(LocalsUserID, userID)
		ctx.Locals(LocalsRequestContext, logger.NewContext(requestCtx,
			logger.Log(requestCtx).With(zap.String("user_id", userID))))
		return ctx.Next()
	}
}

func unauthorized(ctx fiber.Ctx, msg string) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}
