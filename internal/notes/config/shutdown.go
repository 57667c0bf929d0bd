package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidShutdown несогласованные сроки остановки.
var ErrInvalidShutdown = errors.New("invalid shutdown timeouts")

// ShutdownConfig сроки остановки процесса.
type ShutdownConfig struct {
	// Timeout общий срок на все хуки остановки.
	Timeout time.Duration `yaml:"timeout" env:"NOTES_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// DrainTimeout срок ожидания фоновых записей в таблицу. Входит в Timeout.
	DrainTimeout time.Duration `yaml:"drain_timeout" env:"NOTES_SHUTDOWN_DRAIN_TIMEOUT" env-default:"5s"`
}

// Validate требует положительных сроков, не выходящих за Timeout.
func (s *ShutdownConfig) Validate() error {
	if s.Timeout <= 0 || s.DrainTimeout <= 0 || s.DrainTimeout > s.Timeout {
		return fmt.Errorf("%w: timeout=%s drain=%s", ErrInvalidShutdown, s.Timeout, s.DrainTimeout)
	}
	return nil
}
