package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/mailmerge/pkg/db"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/graph"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/resend"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailmerge/pkg/storage"
)

// Config is the environment of every command.
type Config struct {
	Logger  logger.Config
	SMTP    smtp.Config
	Resend  resend.Config
	Graph   graph.Config
	Storage storage.Config
	DB      db.Config

	PreviewAddr string `env:"MAILMERGE_PREVIEW_ADDR" envDefault:"127.0.0.1:8025"`
}

// LoadConfig loads .env files (default ".env") into the process environment
// without overriding set variables, then parses Config. Missing files are
// ignored.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
