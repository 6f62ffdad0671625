package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Auth      AuthConfig
	PageSpeed PageSpeedConfig
	Serp      SerpConfig
	Scraper   ScraperConfig
	AppStore  AppStoreConfig
	Scoring   ScoringConfig
	Quota     QuotaConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type AuthConfig struct {
	SecretKey         string
	TokenExpireMinute int
}

type PageSpeedConfig struct {
	APIKey     string
	BaseURL    string
	Strategy   string
	TimeoutSec int
}

type SerpConfig struct {
	APIKey            string
	BaseURL           string
	TimeoutSec        int
	RequestsPerSecond float64
}

type ScraperConfig struct {
	UserAgent  string
	TimeoutSec int
}

// KnownApp is a verified rating entry for the app-store catalogue.
type KnownApp struct {
	AppID     string
	Rating    float64
	Sentiment float64
}

type AppStoreConfig struct {
	Catalog []KnownApp
}

type ScoringConfig struct {
	CTRPlaceholder         float64
	ReadabilityPlaceholder float64
	ReadabilityMode        string
}

type QuotaConfig struct {
	FreeTierLimit int
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations; a named file must exist.
func LoadFile(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/rankontop")
	}

	v.SetEnvPrefix("RANKONTOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secretKey must be set")
	}
	if c.Quota.FreeTierLimit <= 0 {
		return fmt.Errorf("quota.freeTierLimit must be positive, got %d", c.Quota.FreeTierLimit)
	}
	switch c.Scoring.ReadabilityMode {
	case "placeholder", "flesch", "llm":
	default:
		return fmt.Errorf("unknown scoring.readabilityMode %q", c.Scoring.ReadabilityMode)
	}
	if c.Scoring.ReadabilityMode == "llm" && c.LLM.APIKey == "" {
		return fmt.Errorf("scoring.readabilityMode llm requires llm.apiKey")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.isDevelopment", false)

	v.SetDefault("sqlite.path", "./data/rankontop.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 21600)

	v.SetDefault("auth.secretKey", "a_default_secret_key_for_development")
	v.SetDefault("auth.tokenExpireMinute", 30)

	v.SetDefault("pagespeed.apiKey", "")
	v.SetDefault("pagespeed.baseURL", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.strategy", "MOBILE")
	v.SetDefault("pagespeed.timeoutSec", 15)

	v.SetDefault("serp.apiKey", "")
	v.SetDefault("serp.baseURL", "https://serpapi.com/search")
	v.SetDefault("serp.timeoutSec", 10)
	v.SetDefault("serp.requestsPerSecond", 2)

	v.SetDefault("scraper.userAgent", "RankOnTopBot/1.0")
	v.SetDefault("scraper.timeoutSec", 10)

	v.SetDefault("scoring.ctrPlaceholder", 50)
	v.SetDefault("scoring.readabilityPlaceholder", 70)
	v.SetDefault("scoring.readabilityMode", "placeholder")

	v.SetDefault("quota.freeTierLimit", 10)

	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.maxTokens", 16)
	v.SetDefault("llm.timeoutSec", 20)

	v.SetDefault("rateLimit.maxRequestsPerMinute", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}

// bindLegacyEnv keeps the variable names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("pagespeed.apiKey", "RANKONTOP_PAGESPEED_APIKEY", "PAGESPEED_API_KEY")
	_ = v.BindEnv("serp.apiKey", "RANKONTOP_SERP_APIKEY", "SERPAPI_API_KEY")
	_ = v.BindEnv("auth.secretKey", "RANKONTOP_AUTH_SECRETKEY", "SECRET_KEY")
	_ = v.BindEnv("llm.apiKey", "RANKONTOP_LLM_APIKEY", "OPENAI_API_KEY")
}
