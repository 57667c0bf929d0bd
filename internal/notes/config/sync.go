package config

import "time"

// SyncConfig настройки фоновой синхронизации.
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval" env:"NOTES_SYNC_INTERVAL" env-default:"30s"`
	RecoverOnBoot bool          `yaml:"recover_on_boot" env:"NOTES_SYNC_RECOVER_ON_BOOT" env-default:"true"`
	NoticeBuffer  int           `yaml:"notice_buffer" env:"NOTES_SYNC_NOTICE_BUFFER" env-default:"50"`
}
