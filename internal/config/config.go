package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBDriver string
	DBDSN    string

	UploadDir    string
	TemplatesDir string
	StaticDir    string

	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	LogLevel  slog.Level
	LogFormat string
	LogFile   string

	RBACModel  string
	RBACPolicy string

	CORSAllowedOrigins []string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// LoadConfig reads the environment, after loading files (default ".env")
// when they exist. Variables already set in the environment win.
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "sqlite"),
		DBDSN:         getEnv("DB_DSN", "./estatehub.db"),
		UploadDir:     getEnv("UPLOAD_DIR", "./static/images"),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "templates"),
		StaticDir:     getEnv("STATIC_DIR", "./static"),
		CookieDomain:  getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:  getEnv("COOKIE_SECURE", "false") == "true",
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "no-reply@estatehub.local"),
		LogFormat:     getEnv("LOG_FORMAT", "color"),
		LogFile:       getEnv("LOG_FILE", ""),
		RBACModel:     getEnv("RBAC_MODEL", "configs/rbac_model.conf"),
		RBACPolicy:    getEnv("RBAC_POLICY", "configs/policy.csv"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		slog.Warn("Invalid LOG_LEVEL. Falling back to info.", "LOG_LEVEL", os.Getenv("LOG_LEVEL"))
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.CSRFKey = loadKey("CSRF_KEY", "PLEASE SET CSRF_KEY IN PRODUCTION!")
	cfg.SessionKey = loadKey("SESSION_KEY", "Sessions will be invalid on restart. PLEASE SET SESSION_KEY IN PRODUCTION!")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8080"
	}

	return cfg, nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool { return c.SMTPHost != "" }

// CacheEnabled reports whether search results should be cached in Redis.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// loadKey decodes a base64 secret of at least 32 bytes, generating a random
// one when the variable is missing or unusable.
func loadKey(name, hint string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. " + hint)
		return generateRandomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. " + hint)
		return generateRandomBytes(32)
	}
	return key
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer environment variable. Falling back to default.", "key", key, "value", raw)
		return defaultValue
	}
	return v
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		// Fallback only prevents a panic; never rely on it in production.
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
