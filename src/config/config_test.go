package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"cryptofolio/src/config"
	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: cryptofolio
host: 127.0.0.1
port: 8765
log_level: INFO
backend:
  base_url: https://api.example.com
  timeout: 15
storage:
  db_type: sqlite
  db_path: ./data/test.db
  data_retention_days: 7
watch:
  base_assets: [BTC, ETH]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfig_LoadsAndAppliesDefaults(t *testing.T) {
	cfg, err := config.NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Name != "cryptofolio" || cfg.Port != 8765 {
		t.Errorf("basic fields not loaded: %+v", cfg.MConfig)
	}

	// Unset optional fields fall back to defaults.
	if cfg.Backend.RefreshPath != "/auth/refresh" {
		t.Errorf("refresh path default %q", cfg.Backend.RefreshPath)
	}
	if cfg.Stream.OnTransportError != models.PolicyForceReconnect {
		t.Errorf("transport-error policy default %q", cfg.Stream.OnTransportError)
	}
	if cfg.Stream.HeartbeatTimeout != 60 || cfg.Stream.HistoryDepth != 120 {
		t.Errorf("stream defaults not applied: %+v", cfg.Stream)
	}
	if len(cfg.Watch.PreferredQuotes) != 2 || cfg.Watch.PreferredQuotes[0] != "USDT" {
		t.Errorf("preferred quotes default %v", cfg.Watch.PreferredQuotes)
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	if _, err := config.NewConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNewConfig_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"privileged port", `
name: cryptofolio
host: 127.0.0.1
port: 80
backend: {base_url: https://api.example.com}
storage: {db_type: memory, data_retention_days: 7}
`},
		{"base url without scheme", `
name: cryptofolio
host: 127.0.0.1
port: 8765
backend: {base_url: api.example.com}
storage: {db_type: memory, data_retention_days: 7}
`},
		{"unknown transport-error policy", `
name: cryptofolio
host: 127.0.0.1
port: 8765
backend: {base_url: https://api.example.com}
stream: {on_transport_error: shrug}
storage: {db_type: memory, data_retention_days: 7}
`},
		{"sqlite without path", `
name: cryptofolio
host: 127.0.0.1
port: 8765
backend: {base_url: https://api.example.com}
storage: {db_type: sqlite, data_retention_days: 7}
`},
		{"bus enabled without url", `
name: cryptofolio
host: 127.0.0.1
port: 8765
backend: {base_url: https://api.example.com}
storage: {db_type: memory, data_retention_days: 7}
bus: {enabled: true, subject: prices}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.NewConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Errorf("config with %s should not validate", tc.name)
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	cfg, err := config.NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	again, err := config.NewConfig(out)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Name != cfg.Name || again.Backend.BaseURL != cfg.Backend.BaseURL {
		t.Error("saved config does not round-trip")
	}
	if again.Stream.OnTransportError != cfg.Stream.OnTransportError {
		t.Error("applied defaults should persist through save")
	}
}
