package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "carebook:notifications"

// RedisDispatcher appends intents to a Redis stream for the delivery workers
// to consume. The engine's contract ends at the XADD.
type RedisDispatcher struct {
	rdb    *redis.Client
	stream string
}

func NewRedisDispatcher(rdb *redis.Client, stream string) *RedisDispatcher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisDispatcher{rdb: rdb, stream: stream}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, intent Intent) error {
	contextJSON, err := json.Marshal(intent.Context)
	if err != nil {
		return fmt.Errorf("marshal intent context: %w", err)
	}

	err = d.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"target_party_id": intent.TargetPartyID,
			"template":        string(intent.Template),
			"context":         string(contextJSON),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", d.stream, err)
	}
	return nil
}

// NewRedisClient connects and pings the notification broker.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// LogDispatcher is the fallback when no broker is configured; intents are
// only logged. Useful for local development and tests.
type LogDispatcher struct {
	Log *slog.Logger
}

func (d LogDispatcher) Dispatch(ctx context.Context, intent Intent) error {
	d.Log.Info(
		"notification intent",
		slog.String("target_party_id", intent.TargetPartyID),
		slog.String("template", string(intent.Template)),
	)
	return nil
}
