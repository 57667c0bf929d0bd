package config

import (
	"sheetnotes/pkg/logger"
)

// LoggingConfig содержит настройки логирования.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"NOTES_LOGGER_LEVEL" env-default:"info"`
	Mode       string `yaml:"mode" env:"NOTES_LOGGER_MODE" env-default:"development"`
	File       string `yaml:"file" env:"NOTES_LOGGER_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"NOTES_LOGGER_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"NOTES_LOGGER_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"NOTES_LOGGER_MAX_AGE_DAYS" env-default:"28"`
}

// GetEnvironment получает строку режима в logger environment.
func (l *LoggingConfig) GetEnvironment() logger.Environment {
	if l.Mode == "production" {
		return logger.Production
	}
	return logger.Development
}

// Options возвращает опции logger, включая ротацию файла, если он задан.
func (l *LoggingConfig) Options() []logger.Option {
	if l.File == "" {
		return nil
	}
	return []logger.Option{logger.WithFile(logger.FileOutput{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	})}
}
