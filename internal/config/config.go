package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Providers ProvidersConfig `yaml:"providers"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Routing   RoutingPolicy   `yaml:"routing"`
	Scheduler SM2Policy       `yaml:"scheduler"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Mode     string `yaml:"mode"` // debug, release, test
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig backs the semantic cache, the shared rate-limit counters,
// and the persistence-retry queue. Everything degrades gracefully when disabled.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Ollama    ProviderConfig `yaml:"ollama"`
}

// GatewayConfig holds the generation pipeline knobs.
type GatewayConfig struct {
	PromptVersion      string `yaml:"prompt_version"`
	MaxInputChars      int    `yaml:"max_input_chars"`
	UserRatePerMinute  int    `yaml:"user_rate_per_minute"`
	IPRatePerMinute    int    `yaml:"ip_rate_per_minute"`
	CacheTTLSeconds    int    `yaml:"cache_ttl_seconds"`
	ProviderTimeoutSec int    `yaml:"provider_timeout_seconds"`
	FreeTierQuota      int    `yaml:"free_tier_quota"`
	ProTierQuota       int    `yaml:"pro_tier_quota"`
	EnterpriseQuota    int    `yaml:"enterprise_tier_quota"`
}

// RoutingPolicy holds the model scoring weights. The defaults are inherited
// operating values, not calibrated optima; treat them as tunable policy.
type RoutingPolicy struct {
	LatencyPenaltyPerSec float64 `yaml:"latency_penalty_per_sec"`
	PriorityWeight       float64 `yaml:"priority_weight"`
	CapabilityBonus      float64 `yaml:"capability_bonus"`
	DegradedPenalty      float64 `yaml:"degraded_penalty"`
}

// SM2Policy bounds the spaced-repetition state transitions.
type SM2Policy struct {
	FirstIntervalDays  int     `yaml:"first_interval_days"`
	SecondIntervalDays int     `yaml:"second_interval_days"`
	MinEaseFactor      float64 `yaml:"min_ease_factor"`
	MaxIntervalDays    int     `yaml:"max_interval_days"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     "8080",
			Mode:     "debug",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "memodeck.db",
		},
		JWT: JWTConfig{
			Secret:     "memodeck-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{BaseURL: "https://api.openai.com/v1"},
			Anthropic: ProviderConfig{},
			Gemini:    ProviderConfig{},
			Ollama:    ProviderConfig{BaseURL: "http://localhost:11434"},
		},
		Gateway: GatewayConfig{
			PromptVersion:      "v2",
			MaxInputChars:      100000,
			UserRatePerMinute:  5,
			IPRatePerMinute:    20,
			CacheTTLSeconds:    7 * 24 * 3600,
			ProviderTimeoutSec: 60,
			FreeTierQuota:      20,
			ProTierQuota:       500,
			EnterpriseQuota:    10000,
		},
		Routing: RoutingPolicy{
			LatencyPenaltyPerSec: 0.001,
			PriorityWeight:       0.001,
			CapabilityBonus:      0.005,
			DegradedPenalty:      0.01,
		},
		Scheduler: SM2Policy{
			FirstIntervalDays:  1,
			SecondIntervalDays: 6,
			MinEaseFactor:      1.3,
			MaxIntervalDays:    180,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = n
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		c.Providers.OpenAI.BaseURL = baseURL
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Providers.Anthropic.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Providers.Gemini.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		c.Providers.Ollama.BaseURL = baseURL
	}
	if version := os.Getenv("PROMPT_VERSION"); version != "" {
		c.Gateway.PromptVersion = version
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
