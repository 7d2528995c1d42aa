// Package config loads service settings from the environment, after an
// optional .env file.
package config

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	StoreDriver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL     string `env:"DATABASE_URL"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"hospitals.db"`
	Migrate         bool   `env:"MIGRATE" envDefault:"false"`
	HospitalsTable  string `env:"HOSPITALS_TABLE" envDefault:"hospitals"`
	ColdEmailsTable string `env:"COLD_EMAILS_TABLE" envDefault:"cold_emails"`

	AMQPURL string `env:"AMQP_URL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	Mail Mail `envPrefix:"MAIL_"`
	// AlertTo receives error notifications by email; empty disables alerts.
	AlertTo string `env:"ALERT_TO"`

	ResyncInterval time.Duration `env:"RESYNC_INTERVAL" envDefault:"0s"`
	Collation      string        `env:"COLLATION" envDefault:"en"`
	Operator       string        `env:"OPERATOR" envDefault:"dashboard"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	// Version overrides the module version reported by /healthz.
	Version string `env:"APP_VERSION"`

	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
}

type Mail struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"587"`
	User string `env:"USER"`
	Pass string `env:"PASS"`
	From string `env:"FROM" envDefault:"no-reply@localhost"`
}

type RateLimit struct {
	Requests int           `env:"REQUESTS" envDefault:"60"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// Load reads .env when present, then the environment. Variables already set
// in the environment win over the file.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Language(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Language is the collation tag used for name sorting.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(c.Collation))
	if err != nil {
		return language.Und, fmt.Errorf("COLLATION %q: %w", c.Collation, err)
	}
	return tag, nil
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// BuildVersion is APP_VERSION when set, else the main module version from
// the build info, else "dev".
func (c Config) BuildVersion() string {
	if v := strings.TrimSpace(c.Version); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
