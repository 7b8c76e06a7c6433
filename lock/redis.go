package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
)

// DefaultSweepKey is the Redis key guarding late-fee sweeps.
const DefaultSweepKey = "freight:late-fees:sweep:lock"

// releaseScript deletes the key only if it still holds our token, so an
// expired hold never frees a lock another replica acquired since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript pushes the expiry out while the key still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a SET NX PX lock. TTL bounds how long a crashed holder blocks
// other replicas; a live holder refreshes the TTL every RefreshInterval
// (TTL/3 by default) until it releases. RetryInterval is the polling period
// while waiting.
type Redis struct {
	Client          redis.UniversalClient
	Key             string
	TTL             time.Duration
	RetryInterval   time.Duration
	RefreshInterval time.Duration
	Logger          zerolog.Logger
}

func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultSweepKey
	}
	return &Redis{
		Client:        client,
		Key:           key,
		TTL:           ttl,
		RetryInterval: 100 * time.Millisecond,
		Logger:        logging.WithComponent("lock"),
	}
}

func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	retry := r.RetryInterval
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}

	for {
		ok, err := r.Client.SetNX(ctx, r.Key, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: set %s: %w", r.Key, err)
		}
		if ok {
			return r.hold(token), nil
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %v", generic.ErrLockNotAcquired, r.Key, ctx.Err())
		case <-timer.C:
		}
	}
}

// hold starts the refresher for token and returns its release func.
func (r *Redis) hold(token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.refresh(token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Background context: release must run even if the sweep's ctx is done.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.Client, []string{r.Key}, token).Err(); err != nil {
				r.Logger.Error().Err(err).Str("key", r.Key).Msg("lock release failed; key expires on its TTL")
			}
		})
	}
}

func (r *Redis) refresh(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	every := r.RefreshInterval
	if every <= 0 {
		every = r.TTL / 3
	}
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := refreshScript.Run(ctx, r.Client, []string{r.Key}, token, r.TTL.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.Logger.Warn().Err(err).Str("key", r.Key).Msg("lock refresh failed")
		case n == 0:
			r.Logger.Error().Str("key", r.Key).Msg("lock lost before release")
			return
		}
	}
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("lock: ping redis: %w", err)
	}
	return client, nil
}
