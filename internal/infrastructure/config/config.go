package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App          AppConfig                 `mapstructure:"app"`
	Server       ServerConfig              `mapstructure:"server"`
	CORS         CORSConfig                `mapstructure:"cors"`
	RateLimit    RateLimitConfig           `mapstructure:"rate_limit"`
	Redis        RedisConfig               `mapstructure:"redis"`
	Upstream     UpstreamConfig            `mapstructure:"upstream"`
	Providers    map[string]ProviderConfig `mapstructure:"providers"`
	MaxBodyBytes int64                     `mapstructure:"max_body_bytes"`
	LogLevel     string                    `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CORSConfig 跨域設定
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	PerMinute     int           `mapstructure:"per_minute"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Backend       string        `mapstructure:"backend"` // memory 或 redis
}

// RedisConfig Redis 連線設定（僅 redis 限流後端使用）
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// UpstreamConfig 上游呼叫的超時設定
type UpstreamConfig struct {
	TokenTimeout   time.Duration `mapstructure:"token_timeout"`
	ChatTimeout    time.Duration `mapstructure:"chat_timeout"`
	StreamTimeout  time.Duration `mapstructure:"stream_timeout"`
	TokenTTLMargin time.Duration `mapstructure:"token_ttl_margin"`
}

// ProviderConfig 單一供應商的端點覆寫
type ProviderConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	TokenURL string `mapstructure:"token_url"`
}

// 限流後端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var providerKeys = []string{"qwen", "ernie", "glm", "spark", "kimi", "doubao"}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 逗號分隔的字串
	config.CORS.Origins = splitList(v.GetString("cors.origins"))

	config.Providers = make(map[string]ProviderConfig, len(providerKeys))
	for _, key := range providerKeys {
		config.Providers[key] = ProviderConfig{
			BaseURL:  v.GetString("providers." + key + ".base_url"),
			TokenURL: v.GetString("providers." + key + ".token_url"),
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// bindEnv 綁定環境變量
func bindEnv(v *viper.Viper) {
	v.BindEnv("server.host", "API_HOST")
	v.BindEnv("server.port", "API_PORT")
	v.BindEnv("cors.origins", "CORS_ORIGINS")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.per_minute", "RATE_LIMIT_PER_MINUTE")
	v.BindEnv("rate_limit.backend", "RATE_LIMIT_BACKEND")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("log_level", "LOG_LEVEL")
	for _, key := range providerKeys {
		v.BindEnv("providers."+key+".base_url", strings.ToUpper(key)+"_BASE_URL")
	}
	v.BindEnv("providers.ernie.token_url", "ERNIE_TOKEN_URL")
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "AI Assistant API")

	// 伺服器設定
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.read_timeout", "30s")
	// 串流回應最長 120s，寫入超時需要更長
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("cors.origins", "http://localhost:8000,https://sooogooo.github.io")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_minute", 60)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.sweep_interval", "5m")
	v.SetDefault("rate_limit.backend", BackendMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "llm-gateway:ratelimit:")

	// 上游超時
	v.SetDefault("upstream.token_timeout", "30s")
	v.SetDefault("upstream.chat_timeout", "60s")
	v.SetDefault("upstream.stream_timeout", "120s")
	v.SetDefault("upstream.token_ttl_margin", "5m")

	v.SetDefault("max_body_bytes", 1<<20) // 1MB
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.PerMinute <= 0 {
			return fmt.Errorf("invalid rate limit per minute")
		}
		if config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window")
		}
		switch config.RateLimit.Backend {
		case BackendMemory:
			if config.RateLimit.SweepInterval <= 0 {
				return fmt.Errorf("invalid rate limit sweep interval")
			}
		case BackendRedis:
			if config.Redis.Addr == "" {
				return fmt.Errorf("redis addr is required for redis rate limit backend")
			}
		default:
			return fmt.Errorf("unknown rate limit backend %q", config.RateLimit.Backend)
		}
	}

	if config.Upstream.TokenTimeout <= 0 || config.Upstream.ChatTimeout <= 0 || config.Upstream.StreamTimeout <= 0 {
		return fmt.Errorf("invalid upstream timeout")
	}
	if config.Upstream.TokenTTLMargin < 0 {
		return fmt.Errorf("invalid token ttl margin")
	}
	if config.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body bytes")
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
