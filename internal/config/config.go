// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	JWTSecret      string        `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProvidersConfig struct {
	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GeminiKey     string `yaml:"gemini_key"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
}

// ModelConfig is one catalog entry; the registry is upserted from this list
// at startup and models dropped from it are deactivated.
type ModelConfig struct {
	Name         string  `yaml:"name"`
	Provider     string  `yaml:"provider"` // openai | gemini | ollama
	Kind         string  `yaml:"kind"`
	Tier         string  `yaml:"tier"` // low|medium|high|very-high
	CostPerToken float64 `yaml:"cost_per_token"`
	MaxTokens    int     `yaml:"max_tokens"`
	Endpoint     string  `yaml:"endpoint"`
	Path         string  `yaml:"path"`
	MinMemoryGB  int     `yaml:"min_memory_gb"`
	MinGPUMemGB  int     `yaml:"min_gpu_mem_gb"`
	MinCores     int     `yaml:"min_cores"`
}

// AssignmentConfig maps hardware classes to ordered model name lists. The
// first entry of a list is the default model for that class.
type AssignmentConfig struct {
	CPUOnly   []string      `yaml:"cpu_only"`
	SmallGPU  []string      `yaml:"small_gpu"`
	MediumGPU []string      `yaml:"medium_gpu"`
	LargeGPU  []string      `yaml:"large_gpu"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type OrchestratorConfig struct {
	DefaultModel     string        `yaml:"default_model"`
	MaxPromptChars   int           `yaml:"max_prompt_chars"`
	ProviderTimeout  time.Duration `yaml:"provider_timeout"`
	ChunkIdleTimeout time.Duration `yaml:"chunk_idle_timeout"`
	ConcurrentLimit  int           `yaml:"concurrent_limit"` // 0 = derive from hardware
}

type QuotaConfig struct {
	// Limits overrides the built-in plan table: tier -> feature -> monthly
	// allowance, -1 meaning unlimited.
	Limits map[string]map[string]int64 `yaml:"limits"`
}

type HousekeepingConfig struct {
	AvailabilityInterval time.Duration `yaml:"availability_interval"`
	PurgeInterval        time.Duration `yaml:"purge_interval"`
	RetentionDays        int           `yaml:"retention_days"`
	StaleJobAge          time.Duration `yaml:"stale_job_age"`
	UpdateCheckInterval  time.Duration `yaml:"update_check_interval"`
	LoadSampleInterval   time.Duration `yaml:"load_sample_interval"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Models       []ModelConfig      `yaml:"models"`
	Assignment   AssignmentConfig   `yaml:"assignment"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Quota        QuotaConfig        `yaml:"quota"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets secrets come from the environment so the YAML file
// can be committed without credentials.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Providers.GeminiKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Providers.OllamaBaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Assignment.CacheTTL <= 0 {
		c.Assignment.CacheTTL = time.Hour
	}
	if c.Orchestrator.MaxPromptChars <= 0 {
		c.Orchestrator.MaxPromptChars = 10000
	}
	if c.Orchestrator.ProviderTimeout <= 0 {
		c.Orchestrator.ProviderTimeout = 45 * time.Second
	}
	if c.Orchestrator.ChunkIdleTimeout <= 0 {
		c.Orchestrator.ChunkIdleTimeout = 30 * time.Second
	}
	if c.Providers.OllamaBaseURL == "" {
		c.Providers.OllamaBaseURL = "http://localhost:11434"
	}
	if c.Housekeeping.AvailabilityInterval <= 0 {
		c.Housekeeping.AvailabilityInterval = 5 * time.Minute
	}
	if c.Housekeeping.PurgeInterval <= 0 {
		c.Housekeeping.PurgeInterval = time.Hour
	}
	if c.Housekeeping.RetentionDays <= 0 {
		c.Housekeeping.RetentionDays = 30
	}
	if c.Housekeeping.StaleJobAge <= 0 {
		c.Housekeeping.StaleJobAge = time.Hour
	}
	if c.Housekeeping.UpdateCheckInterval <= 0 {
		c.Housekeeping.UpdateCheckInterval = 6 * time.Hour
	}
	if c.Housekeeping.LoadSampleInterval <= 0 {
		c.Housekeeping.LoadSampleInterval = 30 * time.Second
	}
}
