// Package invalidate tells rendering layers which views are stale after a
// watchlist mutation.
package invalidate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ViewKeyPrefix prefixes cached view keys deleted on invalidation.
const ViewKeyPrefix = "wl:view:"

// Invalidator marks view paths stale.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string) error
}

// Redis publishes each path on a channel and drops any cached view for it.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// ConnectRedis dials and pings addr.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, path := range paths {
			keys[i] = ViewKeyPrefix + path
			p.Publish(ctx, r.channel, path)
		}
		p.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %v: %w", paths, err)
	}
	return nil
}

// Log only records invalidations; used when no cache is configured.
type Log struct{}

func (Log) Invalidate(_ context.Context, paths ...string) error {
	log.Debug().Strs("paths", paths).Msg("invalidate")
	return nil
}

// Recorder keeps every invalidated path in memory.
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *Recorder) Invalidate(_ context.Context, paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
	return nil
}

// Paths returns a copy of the recorded paths in call order.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Multi fans an invalidation out to several targets and joins their errors.
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, paths ...string) error {
	var errs []error
	for _, inv := range m {
		if err := inv.Invalidate(ctx, paths...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
