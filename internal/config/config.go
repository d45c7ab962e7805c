// Package config loads settings for the terminal client.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env         string        `envconfig:"APP_ENV" default:"production"`
	ProxyURL    string        `envconfig:"FLUXORA_PROXY_URL" default:"http://localhost:8080/generate-image"`
	APIKey      string        `envconfig:"FLUXORA_PROXY_APIKEY"`
	AccessToken string        `envconfig:"FLUXORA_ACCESS_TOKEN"`
	UserEmail   string        `envconfig:"FLUXORA_USER_EMAIL"`
	DownloadDir string        `envconfig:"FLUXORA_DOWNLOAD_DIR" default:"downloads"`
	HistoryFile string        `envconfig:"FLUXORA_HISTORY_FILE"`
	Timeout     time.Duration `envconfig:"FLUXORA_TIMEOUT" default:"150s"`
}

// Load reads .env files when present, then the environment.
func Load() (Config, error) {
	// missing files are fine
	_ = godotenv.Load(".env", ".env.local")

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	url := strings.TrimSpace(c.ProxyURL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("config: FLUXORA_PROXY_URL must be an http(s) url, got %q", c.ProxyURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: FLUXORA_TIMEOUT must be positive")
	}
	return nil
}
