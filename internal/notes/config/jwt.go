package config

// JWTConfig настройки проверки access токенов. Пустой ключ отключает аутентификацию API.
type JWTConfig struct {
	SecretKey string `yaml:"secret_key" env:"NOTES_JWT_SECRET" env-default:""`
}

// Enabled сообщает, включена ли проверка токенов.
func (c *JWTConfig) Enabled() bool {
	return c.SecretKey != ""
}
