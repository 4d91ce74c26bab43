package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds process-wide settings. It is built once at startup and passed
// to the components that need it.
type Config struct {
	Port            string        `yaml:"port"`
	MongoURI        string        `yaml:"mongoUri"`
	DBName          string        `yaml:"dbName"`
	JWTSecret       string        `yaml:"jwtSecret"`
	JWTIssuer       string        `yaml:"jwtIssuer"`
	AccessTokenTTL  time.Duration `yaml:"-"`
	RefreshTokenTTL time.Duration `yaml:"-"`
	BcryptCost      int           `yaml:"bcryptCost"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	CookieSecure    bool          `yaml:"cookieSecure"`
	CookieDomain    string        `yaml:"cookieDomain"`
	PublicDir       string        `yaml:"publicDir"`
	LogLevel        string        `yaml:"logLevel"`
	LogFormat       string        `yaml:"logFormat"`

	Redis     RedisConfig     `yaml:"redis"`
	LoginRate RateLimitConfig `yaml:"loginRate"`

	// Minutes and days as written in the file; folded into the durations above.
	AccessTokenTTLMinutes int `yaml:"accessTokenTtlMinutes"`
	RefreshTokenTTLDays   int `yaml:"refreshTokenTtlDays"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig bounds login attempts per client address.
type RateLimitConfig struct {
	Limit         int           `yaml:"limit"`
	WindowMinutes int           `yaml:"windowMinutes"`
	Window        time.Duration `yaml:"-"`
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrMissingMongoURI  = errors.New("MONGO_URI is required")
)

func defaults() Config {
	return Config{
		Port:                  "8080",
		DBName:                "laundry",
		JWTIssuer:             "laundry",
		BcryptCost:            10,
		PublicDir:             "./public",
		LogLevel:              "info",
		LogFormat:             "json",
		AccessTokenTTLMinutes: 20,
		RefreshTokenTTLDays:   7,
		LoginRate: RateLimitConfig{
			Limit:         10,
			WindowMinutes: 15,
		},
	}
}

// Load reads .env (if present), then the optional YAML file named by
// CONFIG_PATH, then environment overrides. A missing signing secret or
// database URI is an error; the caller must not start serving.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := getEnvOrDefault("CONFIG_PATH", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	cfg.AccessTokenTTL = time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour
	cfg.LoginRate.Window = time.Duration(cfg.LoginRate.WindowMinutes) * time.Minute

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.MongoURI = getEnvOrDefault("MONGO_URI", cfg.MongoURI)
	cfg.DBName = getEnvOrDefault("DB_NAME", cfg.DBName)
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnvOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AccessTokenTTLMinutes = getIntEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTLMinutes)
	cfg.RefreshTokenTTLDays = getIntEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTLDays)
	cfg.BcryptCost = getIntEnv("BCRYPT_COST", cfg.BcryptCost)
	cfg.CookieSecure = getBoolEnv("COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieDomain = getEnvOrDefault("COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.PublicDir = getEnvOrDefault("PUBLIC_DIR", cfg.PublicDir)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	if origins := getEnvOrDefault("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getIntEnv("REDIS_DB", cfg.Redis.DB)

	cfg.LoginRate.Limit = getIntEnv("LOGIN_RATE_LIMIT", cfg.LoginRate.Limit)
	cfg.LoginRate.WindowMinutes = getIntEnv("LOGIN_RATE_WINDOW", cfg.LoginRate.WindowMinutes)
}

// Validate rejects configurations the service must not run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if strings.TrimSpace(c.MongoURI) == "" {
		return ErrMissingMongoURI
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.LoginRate.Limit <= 0 || c.LoginRate.Window <= 0 {
		return errors.New("login rate limit and window must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
