package broker

import "time"

// Config describes the Redis connection and the replay cache bounds.
type Config struct {
	// ConnectionURL should be in the format "redis://:password@localhost:6379/0".
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  uint64        `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	ReplayCapacity int           `env:"REPLAY_CAPACITY" envDefault:"50"`
	ReplayTTL      time.Duration `env:"REPLAY_TTL" envDefault:"24h"`
}
