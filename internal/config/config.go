package config

import (
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

const aeadKeySize = 32

type Config struct {
	Host           string
	Port           int
	AEADKey        []byte
	PasswordPepper string
	DatabaseURL    string
	GinMode        string
	TLSCertFile    string
	TLSKeyFile     string
	SessionTTL     time.Duration
	CookieSecure   bool
	AllowedOrigins []string
	HubQueueSize   int
	LoginRateLimit int
	LogLevel       slog.Level
	LogFormat      string
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// LoadConfig reads the dotenv file named by ENV_FILE (default .env) into the
// process environment, without overriding variables that are already set,
// and then parses the environment.
func LoadConfig() (Config, error) {
	file := os.Getenv("ENV_FILE")
	explicit := file != ""
	if !explicit {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Host:           "127.0.0.1",
		Port:           4040,
		GinMode:        "release",
		SessionTTL:     7 * 24 * time.Hour,
		HubQueueSize:   32,
		LoginRateLimit: 10,
		LogLevel:       slog.LevelInfo,
		LogFormat:      "text",
	}

	if raw := env.Getenv("HOST"); raw != "" {
		cfg.Host = raw
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	key, err := parseKey(env.Getenv("AEAD_KEY"))
	if err != nil {
		return Config{}, err
	}
	cfg.AEADKey = key

	cfg.PasswordPepper = env.Getenv("PW_PEPPER")
	if cfg.PasswordPepper == "" {
		return Config{}, fmt.Errorf("PW_PEPPER is required")
	}

	cfg.DatabaseURL = env.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("SESSION_TTL_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid SESSION_TTL_SECONDS")
		}
		cfg.SessionTTL = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("COOKIE_SECURE"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COOKIE_SECURE")
		}
		cfg.CookieSecure = secure
	}

	if raw := env.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
				return Config{}, fmt.Errorf("invalid ALLOWED_ORIGINS entry %q", origin)
			}
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimSuffix(origin, "/"))
		}
	}

	if raw := env.Getenv("HUB_QUEUE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid HUB_QUEUE_SIZE")
		}
		cfg.HubQueueSize = n
	}

	if raw := env.Getenv("LOGIN_RATE_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT")
		}
		cfg.LoginRateLimit = n
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL")
		}
	}

	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		if raw != "text" && raw != "json" {
			return Config{}, fmt.Errorf("invalid LOG_FORMAT")
		}
		cfg.LogFormat = raw
	}

	return cfg, nil
}

// parseKey accepts the key as 32 raw bytes or as base64 of 32 bytes.
func parseKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("AEAD_KEY is required")
	}
	if len(raw) == aeadKeySize {
		return []byte(raw), nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(raw); err == nil && len(key) == aeadKeySize {
			return key, nil
		}
	}
	return nil, fmt.Errorf("invalid AEAD_KEY: need %d bytes", aeadKeySize)
}
