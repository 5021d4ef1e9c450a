package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFrom_DefaultsAndFile(t *testing.T) {
	dir := writeConfig(t, `
collector:
  locales:
    - id: 46
      name: de_de
    - id: 66
      name: en_us
  workers: 8
search:
  enabled: true
  hosts:
    - http://search-1:9200
    - http://search-2:9200
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, []LocaleConfig{{ID: 46, Name: "de_de"}, {ID: 66, Name: "en_us"}}, cfg.Collector.Locales)
	assert.Equal(t, 8, cfg.Collector.Workers)
	assert.Equal(t, 500, cfg.Collector.BatchSize)
	assert.Equal(t, "DEFAULT", cfg.Collector.DefaultPriceType)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "kv:", cfg.Storage.KeyPrefix)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, []string{"http://search-1:9200", "http://search-2:9200"}, cfg.Search.Hosts)
	assert.Equal(t, "collector_consumer", cfg.Redis.ConsumerGroup)
	assert.Equal(t, 5, cfg.Redis.MaxDeliveries)
	assert.Equal(t, "host=localhost port=5432 user=development password= dbname=DE_development_zed sslmode=disable", cfg.Database.DSN())
}

func TestLoadFrom_EnvironmentOverride(t *testing.T) {
	dir := writeConfig(t, `
collector:
  locales:
    - id: 46
      name: de_de
`)
	t.Setenv("COLLECTOR_BATCH_SIZE", "50")
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Collector.BatchSize)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no_locales", "collector:\n  workers: 2\n"},
		{"locale_without_name", "collector:\n  locales:\n    - id: 46\n"},
		{"no_sink", "collector:\n  locales:\n    - id: 46\n      name: de_de\nstorage:\n  enabled: false\n"},
		{"zero_workers", "collector:\n  workers: 0\n  locales:\n    - id: 46\n      name: de_de\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.ErrorContains(t, err, "config.yaml file not found")
}
