package mailer

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the SMTP settings for outgoing notifications. All values come
// from the environment; the mailer stays silently disabled while Host,
// Username, Password or the sender address are missing.
type Config struct {
	Host     string `env:"MAIL_HOST, default=smtp.gmail.com"`
	Port     int    `env:"MAIL_PORT, default=587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM"`
	FromName string `env:"MAIL_FROM_NAME, default=Soporte TI"`
	AdminTo  string `env:"MAIL_ADMIN_TO"`
	UseSSL   bool   `env:"MAIL_USE_SSL, default=false"`
}

// LoadConfig reads the SMTP configuration from the environment and applies the
// fallbacks: From defaults to Username, AdminTo defaults to From.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	if cfg.AdminTo == "" {
		cfg.AdminTo = cfg.From
	}

	return cfg, nil
}

// complete reports whether enough configuration is present to send at all.
func (c Config) complete() bool {
	return c.Host != "" && c.Port != 0 && c.Username != "" && c.Password != "" && c.From != ""
}
