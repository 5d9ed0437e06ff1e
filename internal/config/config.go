package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the leadforge daemon configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Campaign   CampaignConfig   `yaml:"campaign"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Selector   SelectorConfig   `yaml:"selector"`
	Limits     LimitsConfig     `yaml:"limits"`
	Engine     EngineConfig     `yaml:"engine"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds diagnostics API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds diagnostics HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds lead store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, sqlite (default: sqlite)
	Addrs            []string `yaml:"addrs"`  // redis only
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // sqlite only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds OpenAI-compatible API credentials.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig `yaml:"provider"`
	Model      string         `yaml:"model"`
	Dimensions int            `yaml:"dimensions"`
	Cache      *bool          `yaml:"cache"` // default true
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// OracleConfig holds LLM qualifier settings.
type OracleConfig struct {
	Provider  ProviderConfig `yaml:"provider"`
	Model     string         `yaml:"model"`
	MaxTokens int            `yaml:"max_tokens"`
	Budget    BudgetConfig   `yaml:"budget"`
}

// CampaignConfig holds the campaign context consumed by the oracle.
type CampaignConfig struct {
	Objective       string `yaml:"objective"`
	ProductDocsPath string `yaml:"product_docs_path"`
	SeedsPath       string `yaml:"seeds_path"`
}

// ClassifierConfig holds qualification classifier settings.
type ClassifierConfig struct {
	NEstimators        int     `yaml:"n_estimators"`
	MinTrainingSamples int     `yaml:"min_training_samples"`
	MinClassRatio      float64 `yaml:"min_class_ratio"`
	RetrainEvery       int     `yaml:"retrain_every"`
	Seed               int64   `yaml:"seed"`
}

// SelectorConfig holds active-learning selector settings.
type SelectorConfig struct {
	EntropyThreshold float64 `yaml:"entropy_threshold"`
}

// LimitConfig holds one lane's action caps. Zero means no cap.
type LimitConfig struct {
	Daily  int `yaml:"daily"`
	Weekly int `yaml:"weekly"`
}

// LimitsConfig holds per-lane action caps.
type LimitsConfig struct {
	Connect  LimitConfig `yaml:"connect"`
	FollowUp LimitConfig `yaml:"follow_up"`
}

// WorkingHoursConfig gates lane activity to local hours, "HH:MM" bounds.
// Empty values disable the gate.
type WorkingHoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LanesConfig holds per-lane base intervals in seconds.
type LanesConfig struct {
	QualifyIntervalSec  int `yaml:"qualify_interval_sec"`
	ConnectIntervalSec  int `yaml:"connect_interval_sec"`
	FollowUpIntervalSec int `yaml:"follow_up_interval_sec"`
}

// EngineConfig holds daemon scheduler settings.
type EngineConfig struct {
	WorkingHours WorkingHoursConfig `yaml:"working_hours"`
	Lanes        LanesConfig        `yaml:"lanes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// EmbeddingCache reports whether the embedding cache is enabled (default true).
func (c *Config) EmbeddingCache() bool {
	return c.Embedding.Cache == nil || *c.Embedding.Cache
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "leadforge.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Oracle.MaxTokens <= 0 {
		c.Oracle.MaxTokens = 512
	}
	if c.Classifier.NEstimators <= 0 {
		c.Classifier.NEstimators = 10
	}
	if c.Classifier.MinTrainingSamples <= 0 {
		c.Classifier.MinTrainingSamples = 10
	}
	if c.Classifier.MinClassRatio <= 0 {
		c.Classifier.MinClassRatio = 0.1
	}
	if c.Classifier.RetrainEvery <= 0 {
		c.Classifier.RetrainEvery = 5
	}
	if c.Classifier.Seed == 0 {
		c.Classifier.Seed = 1
	}
	if c.Selector.EntropyThreshold <= 0 {
		c.Selector.EntropyThreshold = 0.3
	}
	if c.Engine.Lanes.QualifyIntervalSec <= 0 {
		c.Engine.Lanes.QualifyIntervalSec = 30
	}
	if c.Engine.Lanes.ConnectIntervalSec <= 0 {
		c.Engine.Lanes.ConnectIntervalSec = 300
	}
	if c.Engine.Lanes.FollowUpIntervalSec <= 0 {
		c.Engine.Lanes.FollowUpIntervalSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "sqlite":
		// Path has a default.
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"sqlite\", got %q", c.Database.Driver)
	}
	if c.Classifier.MinClassRatio >= 1 {
		return fmt.Errorf("classifier.min_class_ratio must be below 1, got %v", c.Classifier.MinClassRatio)
	}
	if c.Selector.EntropyThreshold >= 1 {
		return fmt.Errorf("selector.entropy_threshold must be below 1, got %v", c.Selector.EntropyThreshold)
	}
	switch c.Oracle.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("oracle.budget.action must be \"warn\" or \"reject\", got %q", c.Oracle.Budget.Action)
	}
	if c.Limits.Connect.Daily < 0 || c.Limits.Connect.Weekly < 0 ||
		c.Limits.FollowUp.Daily < 0 || c.Limits.FollowUp.Weekly < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	wh := c.Engine.WorkingHours
	if (wh.Start == "") != (wh.End == "") {
		return fmt.Errorf("engine.working_hours requires both start and end")
	}
	if wh.Start != "" {
		if _, err := time.Parse("15:04", wh.Start); err != nil {
			return fmt.Errorf("engine.working_hours.start %q: want HH:MM", wh.Start)
		}
		if _, err := time.Parse("15:04", wh.End); err != nil {
			return fmt.Errorf("engine.working_hours.end %q: want HH:MM", wh.End)
		}
		// Zero-padded HH:MM compares correctly as a string.
		if wh.End <= wh.Start {
			return fmt.Errorf("engine.working_hours end %q is not after start %q", wh.End, wh.Start)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
