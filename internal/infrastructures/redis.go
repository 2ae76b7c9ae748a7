package infrastructures

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func NewRedisClient(config *AppConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.REDIS_ADDRESS,
		Password: config.REDIS_PASSWORD,
		DB:       config.REDIS_DB,
	})

	// Test the connection
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), config.STORE_TIMEOUT)
		defer cancel()
		return client.Ping(ctx).Err()
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectMaxElapsed
	notify := func(err error, next time.Duration) {
		logrus.Warnf("redis not ready, retrying in %s: %v", next, err)
	}

	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		logrus.Fatalf("failed to connect redis: %v", err)
	}

	return client
}
