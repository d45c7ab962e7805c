package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"FLUXORA_PROXY_URL", "FLUXORA_TIMEOUT", "FLUXORA_DOWNLOAD_DIR", "FLUXORA_ACCESS_TOKEN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProxyURL != "http://localhost:8080/generate-image" {
		t.Fatalf("ProxyURL = %q", cfg.ProxyURL)
	}
	if cfg.Timeout != 150*time.Second || cfg.DownloadDir != "downloads" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FLUXORA_PROXY_URL", "https://example.supabase.co/functions/v1/generate-image")
	t.Setenv("FLUXORA_TIMEOUT", "3m")
	t.Setenv("FLUXORA_ACCESS_TOKEN", "tok")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 3*time.Minute || cfg.AccessToken != "tok" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []Config{
		{ProxyURL: "localhost:8080", Timeout: time.Second},
		{ProxyURL: "http://localhost", Timeout: 0},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
}
