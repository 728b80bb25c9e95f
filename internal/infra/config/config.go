package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	SMS       SMSSettings       `mapstructure:"sms"`
	Shopify   ShopifySettings   `mapstructure:"shopify"`
	CORS      CORSSettings      `mapstructure:"cors"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Service   ServiceSettings   `mapstructure:"service"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection used for pending OAuth
// state and rate-limit counters.
type RedisSettings struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DB          int    `mapstructure:"db"`
	Password    string `mapstructure:"password"`
	TLSEnabled  bool   `mapstructure:"tls_enabled"`
	StatePrefix string `mapstructure:"state_prefix"`
}

// KafkaSettings configures the domain event producer. Empty brokers fall
// back to the stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// JWTSettings holds the process-wide signing secret and token lifetime.
type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// SMSSettings configures the SMS gateway used for phone possession codes.
type SMSSettings struct {
	BaseURL string `mapstructure:"base_url"`
	Email   string `mapstructure:"email"`
	Secret  string `mapstructure:"secret"`
	From    string `mapstructure:"from"`
}

// Configured reports whether gateway credentials are present. Dispatch is
// skipped (and logged) when they are not, so local development still works.
func (s SMSSettings) Configured() bool {
	return strings.TrimSpace(s.Email) != "" && strings.TrimSpace(s.Secret) != ""
}

// ShopifySettings configures the OAuth client half of the store linking flow.
type ShopifySettings struct {
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	Scopes         string        `mapstructure:"scopes"`
	APIVersion     string        `mapstructure:"api_version"`
	RedirectBase   string        `mapstructure:"redirect_base"`
	ClientRedirect string        `mapstructure:"client_redirect"`
	StateTTL       time.Duration `mapstructure:"state_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitSettings configures the fixed-window limiter.
type RateLimitSettings struct {
	Window            time.Duration `mapstructure:"window"`
	MaxRequests       int           `mapstructure:"max_requests"`
	VerifyPhoneMax    int           `mapstructure:"verify_phone_max"`
	VerifyPhoneWindow time.Duration `mapstructure:"verify_phone_window"`
}

// ServiceSettings holds the shared secret presented by sibling services.
type ServiceSettings struct {
	SharedSecret string `mapstructure:"shared_secret"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.state_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.access_token_ttl",
		"sms.base_url",
		"sms.email",
		"sms.secret",
		"sms.from",
		"shopify.api_key",
		"shopify.api_secret",
		"shopify.scopes",
		"shopify.api_version",
		"shopify.redirect_base",
		"shopify.client_redirect",
		"shopify.state_ttl",
		"shopify.request_timeout",
		"cors.allowed_origins",
		"rate_limit.window",
		"rate_limit.max_requests",
		"rate_limit.verify_phone_max",
		"rate_limit.verify_phone_window",
		"service.shared_secret",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.state_prefix", "auth:oauth:state")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("jwt.access_token_ttl", "24h")

	v.SetDefault("sms.base_url", "https://notify.eskiz.uz/api")
	v.SetDefault("sms.from", "4546")

	v.SetDefault("shopify.scopes", "read_products,read_orders")
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.client_redirect", "remodely://shopify-callback")
	v.SetDefault("shopify.state_ttl", "10m")
	v.SetDefault("shopify.request_timeout", "15s")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.verify_phone_max", 5)
	v.SetDefault("rate_limit.verify_phone_window", "10m")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
