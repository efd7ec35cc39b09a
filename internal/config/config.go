package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects and configures where trained models are persisted.
type StoreConfig struct {
	Type   string       `yaml:"type"`
	Dir    string       `yaml:"dir"`
	SQLite string       `yaml:"sqlite_path"`
	Redis  *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig contains connection details for the redis model store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DatasetConfig points at the raw CSV and the processed training corpus.
type DatasetConfig struct {
	CSVPath         string  `yaml:"csv_path"`
	ProcessedPath   string  `yaml:"processed_path"`
	ValidationRatio float64 `yaml:"validation_ratio"`
	Seed            int64   `yaml:"seed"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	MaxMessageLength int           `yaml:"max_message_length"`
}

// TrainingConfig controls scheduled retraining.
type TrainingConfig struct {
	Schedule string `yaml:"schedule"`
	Engine   string `yaml:"engine"`
}

// RetrievalConfig tunes the response policy and the intent classifier.
type RetrievalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Trees               int     `yaml:"trees"`
	MaxDepth            int     `yaml:"max_depth"`
	Seed                int64   `yaml:"seed"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Server    ServerConfig    `yaml:"server"`
	Training  TrainingConfig  `yaml:"training"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/supportbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/supportbot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "supportbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "file"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "models"
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.SQLite == "" {
		cfg.Store.SQLite = filepath.Join(cfg.Store.Dir, "models.db")
	}
	if cfg.Store.Type == "redis" {
		if cfg.Store.Redis == nil {
			cfg.Store.Redis = &RedisConfig{}
		}
		if cfg.Store.Redis.Addr == "" {
			cfg.Store.Redis.Addr = "localhost:6379"
		}
		if cfg.Store.Redis.Prefix == "" {
			cfg.Store.Redis.Prefix = "supportbot:"
		}
	}
	if cfg.Dataset.ProcessedPath == "" {
		cfg.Dataset.ProcessedPath = filepath.Join("data", "processed_dataset.json")
	}
	if cfg.Dataset.ValidationRatio <= 0 || cfg.Dataset.ValidationRatio >= 1 {
		cfg.Dataset.ValidationRatio = 0.2
	}
	if cfg.Dataset.Seed == 0 {
		cfg.Dataset.Seed = 42
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.MaxMessageLength == 0 {
		cfg.Server.MaxMessageLength = 1000
	}
	if cfg.Training.Engine == "" {
		cfg.Training.Engine = "all"
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = 0.1
	}
	if cfg.Retrieval.Trees == 0 {
		cfg.Retrieval.Trees = 100
	}
	if cfg.Retrieval.MaxDepth == 0 {
		cfg.Retrieval.MaxDepth = 10
	}
	if cfg.Retrieval.Seed == 0 {
		cfg.Retrieval.Seed = 42
	}
}
