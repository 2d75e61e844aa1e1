package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // STATS_LOCATION must resolve in minimal images

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig is read from the environment, optionally seeded from .env files.
type AppConfig struct {
	Port      string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	StatsAPIBaseURL string        `env:"STATS_API_BASE_URL,required" validate:"url"`
	StatsAPIToken   string        `env:"STATS_API_TOKEN"`
	StatsAPITimeout time.Duration `env:"STATS_API_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	StatsOverall    string        `env:"STATS_OVERALL_PATH" envDefault:"/statistics/overall"`
	StatsTeam       string        `env:"STATS_TEAM_PATH" envDefault:"/statistics/teams"`
	StatsDaily      string        `env:"STATS_DAILY_PATH" envDefault:"/statistics/daily"`
	StatsStaleTime  time.Duration `env:"STATS_STALE_TIME" envDefault:"1m" validate:"gte=0"`
	StatsLocation   string        `env:"STATS_LOCATION" envDefault:"Asia/Ho_Chi_Minh"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"120" validate:"gte=0"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m" validate:"gt=0"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"charity-admin"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	RedisPrefix     string        `env:"REDIS_PREFIX" envDefault:"charity-admin:"`
	PayloadCacheTTL time.Duration `env:"PAYLOAD_CACHE_TTL" envDefault:"30s" validate:"gte=0"`

	MongoURI      string        `env:"MONGO_URI"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"charity_admin"`
	MongoTimeout  time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

// Load reads .env files when present and parses the environment.
func Load(files ...string) (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves StatsLocation, the zone used for "today" and zone-less dates.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StatsLocation)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_LOCATION %q: %w", c.StatsLocation, err)
	}
	return loc, nil
}

func (c *AppConfig) AuthEnabled() bool    { return c.JWTSecret != "" }
func (c *AppConfig) RedisEnabled() bool   { return c.RedisAddr != "" }
func (c *AppConfig) ArchiveEnabled() bool { return c.MongoURI != "" }
