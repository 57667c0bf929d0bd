// Package kv defines durable key-value storage for settings.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound ключ отсутствует.
var ErrKeyNotFound = errors.New("key not found")

// Store строковое key-value хранилище.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
