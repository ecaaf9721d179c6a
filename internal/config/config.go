package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// PushProvider selects the outbound push backend: "fcm" or "gateway".
	PushProvider       string `env:"PUSH_PROVIDER,default=fcm"`
	FCMCredentialsFile string `env:"FCM_CREDENTIALS_FILE"`
	GatewayPushURL     string `env:"GATEWAY_PUSH_URL"`

	RateLimitWindowSec int `env:"RATE_LIMIT_WINDOW_SEC,default=60"`
	RateLimitCapacity  int `env:"RATE_LIMIT_CAPACITY,default=1000"`

	WorkerConcurrency int `env:"WORKER_CONCURRENCY,default=16"`
	SweepIntervalMin  int `env:"SWEEP_INTERVAL_MIN,default=60"`
	StaleTokenDays    int `env:"STALE_TOKEN_DAYS,default=270"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.PushProvider {
	case "fcm":
		if cfg.FCMCredentialsFile == "" {
			return nil, fmt.Errorf("FCM_CREDENTIALS_FILE is required when PUSH_PROVIDER=fcm")
		}
	case "gateway":
		if cfg.GatewayPushURL == "" {
			return nil, fmt.Errorf("GATEWAY_PUSH_URL is required when PUSH_PROVIDER=gateway")
		}
	default:
		return nil, fmt.Errorf("unknown PUSH_PROVIDER %q", cfg.PushProvider)
	}

	return &cfg, nil
}
