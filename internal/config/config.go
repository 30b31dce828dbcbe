package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string        `mapstructure:"host"     json:"host"`
	Password string        `mapstructure:"password" json:"-"`
	Database int           `mapstructure:"database" json:"database"`
	Port     uint16        `mapstructure:"port"     json:"port"`
	TTL      time.Duration `mapstructure:"ttl"      json:"ttl"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Cart struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"      json:"default_ttl"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"      json:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
}

type Services struct {
	CartURL        string        `mapstructure:"cart_url"        json:"cart_url"`
	ProductURL     string        `mapstructure:"product_url"     json:"product_url"`
	UserURL        string        `mapstructure:"user_url"        json:"user_url"`
	ProductTimeout time.Duration `mapstructure:"product_timeout" json:"product_timeout"`
	ProxyTimeout   time.Duration `mapstructure:"proxy_timeout"   json:"proxy_timeout"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers" json:"brokers"`
	Topic   string   `mapstructure:"topic"   json:"topic"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Services    `mapstructure:"services"    json:"services"`
	Kafka       `mapstructure:"kafka"       json:"kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("cart.default_ttl", time.Hour)
	v.SetDefault("cart.session_ttl", 24*time.Hour)
	v.SetDefault("cart.cleanup_interval", 10*time.Minute)
	v.SetDefault("services.cart_url", "http://cart-service:8080")
	v.SetDefault("services.product_url", "http://product-service:8080")
	v.SetDefault("services.user_url", "http://user-service:8080")
	v.SetDefault("services.product_timeout", 5*time.Second)
	v.SetDefault("services.proxy_timeout", 30*time.Second)
	v.SetDefault("kafka.topic", "cart.events")
}

// InitConfig reads ./env/{filename}.yaml, overlaid with environment variables
// such as CART_SESSION_TTL or DB_HOST.
func InitConfig(c context.Context, filename string, paths ...string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main InitConfig").
		Str(log.KeyProcess, "init config").
		Str("filename", filename).
		Logger()

	if len(paths) == 0 {
		paths = []string{"./env"}
	}

	v := viper.New()
	v.SetConfigName(filename)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		err = fmt.Errorf("error when reading config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("error unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger = logger.With().Any(log.KeyConfig, cfg).Logger()
	logger.Info().Msg("unmarshaled config")

	logger = logger.With().Str(log.KeyProcess, "validating config").Logger()
	if err := cfg.validate(); err != nil {
		err = fmt.Errorf("error validating config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	return &cfg, nil
}

// validate rejects durations that would make a ticker or a TTL unusable.
func (cfg Config) validate() error {
	durations := []struct {
		key   string
		value time.Duration
	}{
		{key: "cache.ttl", value: cfg.Cache.TTL},
		{key: "cart.default_ttl", value: cfg.Cart.DefaultTTL},
		{key: "cart.session_ttl", value: cfg.Cart.SessionTTL},
		{key: "cart.cleanup_interval", value: cfg.Cart.CleanupInterval},
		{key: "services.product_timeout", value: cfg.Services.ProductTimeout},
		{key: "services.proxy_timeout", value: cfg.Services.ProxyTimeout},
	}
	var errs []error
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got=%s", d.key, d.value))
		}
	}
	return errors.Join(errs...)
}
