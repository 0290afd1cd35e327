package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration. Every field has a fallback so the
// server starts with an empty environment.
type Config struct {
	Port string `env:"PORT,default=8080"`

	MongoURI      string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE,default=ecommerce"`

	JWTSecret    string        `env:"JWT_SECRET,default=your_secret_key"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN,default=168h"`

	// Empty RedisAddr disables caching, token revocation and pub/sub.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	UploadDir   string `env:"UPLOAD_DIR,default=./uploads"`
	PublicURL   string `env:"PUBLIC_URL,default=http://localhost:8080"`
	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	AuthRatePerMinute int `env:"AUTH_RATE_PER_MINUTE,default=20"`
	AuthRateBurst     int `env:"AUTH_RATE_BURST,default=10"`

	CardFingerprintKey    string        `env:"CARD_FINGERPRINT_KEY,default=card_fingerprint_key"`
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION,default=720h"`
}

// Load reads .env (when present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found; using system environment")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn)
	}
	if c.AuthRatePerMinute <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_PER_MINUTE and AUTH_RATE_BURST must be positive")
	}
	return nil
}

// Addr returns the listen address in ":port" form.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
