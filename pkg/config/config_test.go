package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "stripclass.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, ".alt", cfg.Output.Suffix)
	assert.Equal(t, "none", cfg.Output.Compress)
	assert.Equal(t, "local", cfg.Output.Storage.Type)
	assert.Empty(t, cfg.Output.Storage.LocalPath)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "sqlite", cfg.History.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Codec.ByteOrder)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".alt", cfg.Output.Suffix)
}

func TestLoad_CustomValues(t *testing.T) {
	content := []byte(`
output:
  suffix: .stub
  compress: zstd
  storage:
    type: cos
    bucket: classes-1250000000
    region: ap-guangzhou
    prefix: skeletons/
batch:
  workers: 8
  include: [com/example/]
  exclude: [com/example/internal/]
  skip_jdk: true
history:
  enabled: true
  type: postgres
  host: db.example.com
  port: 5432
  user: strip
codec:
  byte_order: big
  verify: true
`)
	cfg, err := LoadFromReader("yaml", content)
	require.NoError(t, err)

	assert.Equal(t, ".stub", cfg.Output.Suffix)
	assert.Equal(t, "zstd", cfg.Output.Compress)
	assert.Equal(t, "cos", cfg.Output.Storage.Type)
	assert.Equal(t, "classes-1250000000", cfg.Output.Storage.Bucket)
	assert.Equal(t, "myqcloud.com", cfg.Output.Storage.Domain)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, []string{"com/example/"}, cfg.Batch.Include)
	assert.Equal(t, []string{"com/example/internal/"}, cfg.Batch.Exclude)
	assert.True(t, cfg.Batch.SkipJDK)
	assert.Equal(t, "db.example.com", cfg.History.Host)
	assert.Equal(t, 5432, cfg.History.Port)
	assert.True(t, cfg.Codec.Verify)
	assert.Equal(t, "A.class.stub", cfg.OutputPath("A.class"))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STRIPCLASS_OUTPUT_SUFFIX", ".env")
	t.Setenv("STRIPCLASS_BATCH_WORKERS", "2")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".env", cfg.Output.Suffix)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoad_InvalidFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "stripclass.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("output: [unclosed"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty suffix", func(c *Config) { c.Output.Suffix = "" }, "suffix"},
		{"bad compression", func(c *Config) { c.Output.Compress = "lz4" }, "compression"},
		{"bad storage", func(c *Config) { c.Output.Storage.Type = "s3" }, "storage type"},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, "workers"},
		{"bad history type", func(c *Config) {
			c.History.Enabled = true
			c.History.Type = "oracle"
		}, "history database type"},
		{"sqlite without path", func(c *Config) {
			c.History.Enabled = true
			c.History.Path = ""
		}, "history path"},
		{"mysql without host", func(c *Config) {
			c.History.Enabled = true
			c.History.Type = "mysql"
			c.History.Host = ""
		}, "history host"},
		{"disabled history is not checked", func(c *Config) { c.History.Type = "oracle" }, ""},
		{"bad byte order", func(c *Config) { c.Codec.ByteOrder = "middle" }, "byte order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
