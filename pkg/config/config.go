/*
Package config manages TOML config for heatserve.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/heat"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
)

const appName = "heatserve"

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Index   IndexConfig   `toml:"index"`
	Store   StoreConfig   `toml:"store"`
	Seed    SeedConfig    `toml:"seed"`
	Similar SimilarConfig `toml:"similar"`
	CLI     CliConfig     `toml:"cli"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig has the query limits shared by the HTTP and IPC surfaces.
type ServerConfig struct {
	Addr         string  `toml:"addr"`
	DefaultLimit int     `toml:"default_limit"`
	MaxLimit     int     `toml:"max_limit"`
	MinPrefix    int     `toml:"min_prefix"`
	MaxPrefix    int     `toml:"max_prefix"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst    int     `toml:"rate_burst"`
}

// IndexConfig controls the trie and heat policy.
type IndexConfig struct {
	Alphabet     string   `toml:"alphabet"`
	HeatTriggers []string `toml:"heat_triggers"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Kind           string  `toml:"kind"`
	Path           string  `toml:"path"`
	FlushInterval  string  `toml:"flush_interval"`
	FlushPerSecond float64 `toml:"flush_per_second"`
}

// SeedConfig controls the corpus loaded into an empty store.
type SeedConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// SimilarConfig tunes the edit-distance search.
type SimilarConfig struct {
	Algorithm string  `toml:"algorithm"`
	Threshold float64 `toml:"threshold"`
	Limit     int     `toml:"limit"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// LogConfig holds logger options.
type LogConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Timestamp bool   `toml:"timestamp"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":5000",
			DefaultLimit: 10,
			MaxLimit:     64,
			MinPrefix:    1,
			MaxPrefix:    60,
			RateLimit:    50,
			RateBurst:    100,
		},
		Index: IndexConfig{
			Alphabet:     trie.AlphabetOpen.String(),
			HeatTriggers: heat.DefaultPolicy().Triggers(),
		},
		Store: StoreConfig{
			Kind:           "file",
			FlushInterval:  "2s",
			FlushPerSecond: 4,
		},
		Seed: SeedConfig{
			Enabled: true,
		},
		Similar: SimilarConfig{
			Algorithm: "levenshtein",
			Threshold: 0.3,
			Limit:     10,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first setting the services cannot run with.
func (c *Config) Validate() error {
	s := c.Server
	if s.MaxLimit < 1 {
		return fmt.Errorf("server.max_limit must be positive, got %d", s.MaxLimit)
	}
	if s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("server.default_limit must be within 1..%d, got %d", s.MaxLimit, s.DefaultLimit)
	}
	if s.MinPrefix < 1 || s.MaxPrefix < s.MinPrefix {
		return fmt.Errorf("server prefix bounds %d..%d are invalid", s.MinPrefix, s.MaxPrefix)
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be positive when rate_limit is set, got %d", s.RateBurst)
	}
	if _, err := trie.ParseAlphabet(c.Index.Alphabet); err != nil {
		return err
	}
	if _, err := heat.Parse(c.Index.HeatTriggers); err != nil {
		return err
	}
	if _, err := c.FlushInterval(); err != nil {
		return err
	}
	return nil
}

// Alphabet returns the parsed index alphabet.
func (c *Config) Alphabet() (trie.Alphabet, error) {
	return trie.ParseAlphabet(c.Index.Alphabet)
}

// Policy returns the parsed heat policy.
func (c *Config) Policy() (heat.Policy, error) {
	return heat.Parse(c.Index.HeatTriggers)
}

// FlushInterval parses store.flush_interval; empty means the batcher default.
func (c *Config) FlushInterval() (time.Duration, error) {
	if c.Store.FlushInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.FlushInterval)
	if err != nil {
		return 0, fmt.Errorf("store.flush_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("store.flush_interval must be positive, got %s", d)
	}
	return d, nil
}

// StorePath returns store.path, or terms.snap in the config dir when unset.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "terms.snap"), nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", appName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", appName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/heatserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file, falling back to a section-by-section
// parse when the file does not decode cleanly into Config.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		log.Debugf("Strict decode of %s failed: %v", configPath, err)
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value it can find.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "seed"); ok {
		extractSeedConfig(section, &config.Seed)
	}
	if section, ok := utils.ExtractSection(tempConfig, "similar"); ok {
		extractSimilarConfig(section, &config.Similar)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractInt64(section, "default_limit"); ok {
			config.CLI.DefaultLimit = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		extractLogConfig(section, &config.Log)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		server.Addr = val
	}
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractFloat(data, "rate_limit"); ok {
		server.RateLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "rate_burst"); ok {
		server.RateBurst = val
	}
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractString(data, "alphabet"); ok {
		index.Alphabet = val
	}
	if val, ok := utils.ExtractStrings(data, "heat_triggers"); ok {
		index.HeatTriggers = val
	}
}

func extractStoreConfig(data map[string]any, st *StoreConfig) {
	if val, ok := utils.ExtractString(data, "kind"); ok {
		st.Kind = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		st.Path = val
	}
	if val, ok := utils.ExtractString(data, "flush_interval"); ok {
		st.FlushInterval = val
	}
	if val, ok := utils.ExtractFloat(data, "flush_per_second"); ok {
		st.FlushPerSecond = val
	}
}

func extractSeedConfig(data map[string]any, seed *SeedConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		seed.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		seed.Path = val
	}
}

func extractSimilarConfig(data map[string]any, sim *SimilarConfig) {
	if val, ok := utils.ExtractString(data, "algorithm"); ok {
		sim.Algorithm = val
	}
	if val, ok := utils.ExtractFloat(data, "threshold"); ok {
		sim.Threshold = val
	}
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		sim.Limit = val
	}
}

func extractLogConfig(data map[string]any, lc *LogConfig) {
	if val, ok := utils.ExtractString(data, "level"); ok {
		lc.Level = val
	}
	if val, ok := utils.ExtractString(data, "format"); ok {
		lc.Format = val
	}
	if val, ok := utils.ExtractBool(data, "timestamp"); ok {
		lc.Timestamp = val
	}
}

// RebuildConfigFile overwrites configPath with the defaults. An empty path
// means the default location.
func RebuildConfigFile(configPath string) (string, error) {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return "", err
		}
		configPath = defaultPath
	}
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return "", err
	}
	if err := utils.SaveTOMLFile(DefaultConfig(), configPath); err != nil {
		return "", err
	}
	return configPath, nil
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// UpdateLimits changes the server limits and saves to file. Nil leaves a
// value unchanged.
func (c *Config) UpdateLimits(configPath string, defaultLimit, maxLimit, minPrefix, maxPrefix *int) error {
	server := &c.Server
	if defaultLimit != nil {
		server.DefaultLimit = *defaultLimit
	}
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if minPrefix != nil {
		server.MinPrefix = *minPrefix
	}
	if maxPrefix != nil {
		server.MaxPrefix = *maxPrefix
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return SaveConfig(c, configPath)
}
