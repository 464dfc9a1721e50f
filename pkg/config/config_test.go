package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/heatserve/pkg/heat"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	a, err := cfg.Alphabet()
	require.NoError(t, err)
	assert.Equal(t, trie.AlphabetOpen, a)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, heat.DefaultPolicy(), p)

	d, err := cfg.FlushInterval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max limit", func(c *Config) { c.Server.MaxLimit = 0 }},
		{"default above max", func(c *Config) { c.Server.DefaultLimit = c.Server.MaxLimit + 1 }},
		{"prefix bounds", func(c *Config) { c.Server.MaxPrefix = 0 }},
		{"rate without burst", func(c *Config) { c.Server.RateLimit = 10; c.Server.RateBurst = 0 }},
		{"alphabet", func(c *Config) { c.Index.Alphabet = "greek" }},
		{"trigger", func(c *Config) { c.Index.HeatTriggers = []string{"on_tuesday"} }},
		{"interval", func(c *Config) { c.Store.FlushInterval = "soon" }},
		{"negative interval", func(c *Config) { c.Store.FlushInterval = "-1s" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
max_limit = 20
default_limit = 5

[index]
alphabet = "lower"
heat_triggers = ["exact_hit"]

[store]
kind = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Server.MaxLimit)
	assert.Equal(t, 5, cfg.Server.DefaultLimit)
	assert.Equal(t, "lower", cfg.Index.Alphabet)
	assert.Equal(t, []string{"exact_hit"}, cfg.Index.HeatTriggers)
	assert.Equal(t, "memory", cfg.Store.Kind)
	// untouched sections keep defaults
	assert.Equal(t, 60, cfg.Server.MaxPrefix)
	assert.True(t, cfg.Seed.Enabled)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	// max_limit has the wrong type, so the strict decode fails
	content := `
[server]
max_limit = "lots"
default_limit = 7

[similar]
threshold = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Server.MaxLimit)
	assert.Equal(t, 7, cfg.Server.DefaultLimit)
	assert.Equal(t, 1.0, cfg.Similar.Threshold)
}

func TestLoadConfigGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[not toml"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestUpdateLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	limit := 32
	require.NoError(t, cfg.UpdateLimits(path, nil, &limit, nil, nil))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 32, loaded.Server.MaxLimit)

	bad := 0
	assert.Error(t, cfg.UpdateLimits(path, nil, &bad, nil, nil))
}

func TestStorePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Path = "/tmp/x.snap"
	p, err := cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.snap", p)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { reloaded <- c }) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	updated := DefaultConfig()
	updated.Server.MaxLimit = 12
	updated.Server.DefaultLimit = 3
	require.NoError(t, SaveConfig(updated, path))

	select {
	case c := <-reloaded:
		assert.Equal(t, 12, c.Server.MaxLimit)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}
