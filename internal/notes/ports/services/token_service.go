// Package services defines service interfaces for the notes service.
package services

import (
	"context"
	"errors"
)

// TokenService проверяет access токены и возвращает идентификатор пользователя.
type TokenService interface {
	ValidateAccessToken(ctx context.Context, token string) (string, error)
}

// Ошибки проверки токенов.
var (
	ErrInvalidJWTToken = errors.New("invalid JWT token")
	ErrExpiredJWTToken = errors.New("JWT token has expired")
)
