package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storehub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv blanks variables a developer shell may export.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigFileEnv, "APP_ENV", "APP_NAME", "DATABASE_URL", "DB_HOST", "REDIS_HOST",
		"STORAGE_INVENTORY_PATH", "STORAGE_FILE_MODE", "FEATURE_STORE_ENCRYPTION",
		"FEATURE_CODEC_DYNAMIC_SHIFT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "storehub", cfg.App.Name)
	assert.Equal(t, "inventory.txt", cfg.Storage.InventoryPath)
	assert.Equal(t, os.FileMode(0o644), cfg.Storage.FileMode)
	assert.Equal(t, 2, cfg.Storage.LowStockThreshold)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.IsDevelopment())

	assert.True(t, cfg.Features.IsEnabled(FeatureStoreEncryption))
	assert.False(t, cfg.Features.IsEnabled(FeatureCodecDynamicShift))
}

func TestLoadFile_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
app:
  environment: staging
  command_timeout: 5s
codec:
  alphabet: abcde
storage:
  inventory_path: /var/lib/storehub/store.txt
  low_stock_threshold: 3
database:
  url: postgres://u:p@db:5432/storehub
redis:
  host: cache
features:
  codec.dynamic_shift: true
  store.encryption: false
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvStaging, cfg.App.Environment)
	assert.Equal(t, 5*time.Second, cfg.App.CommandTimeout)
	assert.Equal(t, "abcde", cfg.Codec.Alphabet)
	assert.Equal(t, "/var/lib/storehub/store.txt", cfg.Storage.InventoryPath)
	assert.Equal(t, 3, cfg.Storage.LowStockThreshold)
	assert.Equal(t, 20, cfg.Storage.SnapshotHistory, "keys absent from the file keep defaults")
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.True(t, cfg.Features.IsEnabled(FeatureCodecDynamicShift))
	assert.False(t, cfg.Features.IsEnabled(FeatureStoreEncryption))
}

func TestLoadFile_EnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
storage:
  inventory_path: from-file.txt
features:
  store.encryption: false
`)
	t.Setenv("STORAGE_INVENTORY_PATH", "from-env.txt")
	t.Setenv("STORAGE_FILE_MODE", "0600")
	t.Setenv("FEATURE_STORE_ENCRYPTION", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_DISABLED", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.txt", cfg.Storage.InventoryPath)
	assert.Equal(t, os.FileMode(0o600), cfg.Storage.FileMode)
	assert.True(t, cfg.Features.IsEnabled(FeatureStoreEncryption))
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_UsesConfigFileEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "app:\n  name: shop\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.App.Name)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "app: [unclosed"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "features:\n  no.such_flag: true\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty inventory path", func(c *Config) { c.Storage.InventoryPath = "" }},
		{"negative threshold", func(c *Config) { c.Storage.LowStockThreshold = -1 }},
		{"non-permission file mode", func(c *Config) { c.Storage.FileMode = os.ModeDir | 0o644 }},
		{"production without database", func(c *Config) { c.App.Environment = EnvProduction }},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 10 }},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
