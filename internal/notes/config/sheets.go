package config

import "time"

// SheetsConfig настройки клиента прокси таблиц.
type SheetsConfig struct {
	BaseURL          string        `yaml:"base_url" env:"NOTES_SHEETS_BASE_URL" env-default:"https://sheetsapi-g56q77hy2a-uc.a.run.app"`
	SheetName        string        `yaml:"sheet_name" env:"NOTES_SHEETS_SHEET_NAME" env-default:"notes"`
	Timeout          time.Duration `yaml:"timeout" env:"NOTES_SHEETS_TIMEOUT" env-default:"15s"`
	RequestsPerSec   float64       `yaml:"requests_per_sec" env:"NOTES_SHEETS_RPS" env-default:"1"`
	Burst            int           `yaml:"burst" env:"NOTES_SHEETS_BURST" env-default:"5"`
	FailureThreshold int           `yaml:"failure_threshold" env:"NOTES_SHEETS_FAILURE_THRESHOLD" env-default:"5"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" env:"NOTES_SHEETS_RESET_TIMEOUT" env-default:"30s"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" env:"NOTES_SHEETS_HALF_OPEN_MAX_CALLS" env-default:"1"`
	RetryAttempts    int           `yaml:"retry_attempts" env:"NOTES_SHEETS_RETRY_ATTEMPTS" env-default:"3"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay" env:"NOTES_SHEETS_RETRY_BASE_DELAY" env-default:"200ms"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay" env:"NOTES_SHEETS_RETRY_MAX_DELAY" env-default:"3s"`
}
