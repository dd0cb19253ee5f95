package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	minAccessExpiry = 15
	maxAccessExpiry = 30
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host                 string
	Port                 string
	Password             string
	DB                   int
	LoginRequestsPerMin  int
	RateLimitingDisabled bool
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes, 15..30
	RefreshExpiry int // in days
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// AdminConfig describes the administrator account ensured at startup.
// Bootstrap is skipped when Email is empty.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

// IsDevelopment reports whether the server runs outside production.
func (c ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

func Load() *Config {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_LOGIN_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT_DISABLED", false)
	v.SetDefault("JWT_ACCESS_EXPIRY", 30)
	v.SetDefault("JWT_REFRESH_EXPIRY", 7)
	v.SetDefault("UPLOAD_DIR", "static")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("ADMIN_NAME", "admin")

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:                 v.GetString("REDIS_HOST"),
			Port:                 v.GetString("REDIS_PORT"),
			Password:             v.GetString("REDIS_PASSWORD"),
			DB:                   v.GetInt("REDIS_DB"),
			LoginRequestsPerMin:  v.GetInt("RATE_LIMIT_LOGIN_PER_MINUTE"),
			RateLimitingDisabled: v.GetBool("RATE_LIMIT_DISABLED"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  clampAccessExpiry(v.GetInt("JWT_ACCESS_EXPIRY")),
			RefreshExpiry: v.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Upload: UploadConfig{
			Dir:      v.GetString("UPLOAD_DIR"),
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Admin: AdminConfig{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}
}

func clampAccessExpiry(minutes int) int {
	if minutes < minAccessExpiry {
		return minAccessExpiry
	}
	if minutes > maxAccessExpiry {
		return maxAccessExpiry
	}
	return minutes
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
