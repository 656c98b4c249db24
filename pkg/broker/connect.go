package broker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// Connect establishes a Redis connection and wraps it as a Broker. The
// connection is verified with PING and retried per the config before giving
// up; a broker that cannot be reached at startup should fail the process
// rather than limp along.
func Connect(ctx context.Context, cfg Config) (*RedisBroker, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	var client *redis.Client
	backoff := retry.WithMaxRetries(cfg.RetryAttempts, retry.NewConstant(cfg.RetryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		client = redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			client = nil
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrNotReady, err)
	}

	replayOpts := []RedisOption{}
	if cfg.ReplayCapacity > 0 {
		replayOpts = append(replayOpts, WithReplayCapacity(cfg.ReplayCapacity))
	}
	if cfg.ReplayTTL > 0 {
		replayOpts = append(replayOpts, WithReplayTTL(cfg.ReplayTTL))
	}
	return NewRedis(client, replayOpts...), nil
}

// Healthcheck returns a probe function suitable for HTTP liveness checks.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
