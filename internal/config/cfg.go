package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Host        string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort    string `envconfig:"SERVER_HTTP_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type Db struct {
	Dialect string `envconfig:"DB_DIALECT" default:"sqlite"`
	Source  string `envconfig:"DB_NAME" default:"subs.db"`
}

type Notifier struct {
	Schedule       string        `envconfig:"NOTIFIER_SCHEDULE" default:"@hourly"`
	TimeZone       string        `envconfig:"NOTIFIER_TIMEZONE" default:"UTC"`
	Workers        int           `envconfig:"NOTIFIER_WORKERS" default:"4"`
	RunTimeout     time.Duration `envconfig:"NOTIFIER_RUN_TIMEOUT" default:"2m"`
	Dedupe         bool          `envconfig:"NOTIFIER_DEDUPE" default:"false"`
	NotifyOnCreate bool          `envconfig:"NOTIFY_ON_CREATE" default:"true"`
}

type Webhook struct {
	Username        string        `envconfig:"WEBHOOK_USERNAME" default:"Subscription Tracker"`
	Timeout         time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	BreakerFailures uint32        `envconfig:"WEBHOOK_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"WEBHOOK_BREAKER_TIMEOUT" default:"5m"`
	BreakerInterval time.Duration `envconfig:"WEBHOOK_BREAKER_INTERVAL" default:"1h"`
	LogPath         string        `envconfig:"WEBHOOK_LOG_PATH" default:"logs/webhooks.log"`
}

type Broadcast struct {
	Delay time.Duration `envconfig:"BROADCAST_DELAY" default:"1s"`
}

type Operator struct {
	UserID       string        `envconfig:"OPERATOR_USER_ID"`
	Secret       string        `envconfig:"OPERATOR_SECRET"`
	TokenTTL     time.Duration `envconfig:"OPERATOR_TOKEN_TTL" default:"1h"`
	TokenStore   string        `envconfig:"OPERATOR_TOKEN_STORE" default:"memory"`
	AlertWebhook string        `envconfig:"OPERATOR_ALERT_WEBHOOK_URL"`
	LoginEvery   time.Duration `envconfig:"OPERATOR_LOGIN_INTERVAL" default:"2s"`
	LoginBurst   int           `envconfig:"OPERATOR_LOGIN_BURST" default:"5"`
}

type Redis struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type Config struct {
	PublicURL string   `envconfig:"APP_PUBLIC_URL" default:"http://localhost:8080"`
	Origins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	LogsPath  string   `envconfig:"LOGS_PATH" default:"logs/subtracker.log"`

	Server    Server
	DB        Db
	Notifier  Notifier
	Webhook   Webhook
	Broadcast Broadcast
	Operator  Operator
	Redis     Redis
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.HTTPPort
}

// Location resolves the notifier time zone used for calendar-day comparisons.
func (n *Notifier) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(n.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load notifier time zone %q: %w", n.TimeZone, err)
	}
	return loc, nil
}

func (r *Redis) Address() string {
	return r.Host + ":" + r.Port
}
