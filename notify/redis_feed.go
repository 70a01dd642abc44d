package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const feedKey = "notifications" // List: pending toast messages, oldest first

// Toast is one queued notification.
type Toast struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// RedisFeed queues messages on a capped Redis list for the UI to drain.
type RedisFeed struct {
	Client *redis.Client
	Cap    int64
	Logger *slog.Logger
}

// NewRedisFeed creates a feed keeping at most capacity messages; a
// non-positive capacity means 100.
func NewRedisFeed(client *redis.Client, capacity int, logger *slog.Logger) *RedisFeed {
	if capacity <= 0 {
		capacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{Client: client, Cap: int64(capacity), Logger: logger}
}

func (f *RedisFeed) Notify(ctx context.Context, message string) {
	payload, err := json.Marshal(Toast{Message: message, CreatedAt: time.Now().UTC()})
	if err != nil {
		f.Logger.Error("failed to encode notification", "error", err)
		return
	}

	pipe := f.Client.TxPipeline()
	pipe.RPush(ctx, feedKey, payload)
	// Keep only the newest Cap entries.
	pipe.LTrim(ctx, feedKey, -f.Cap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		f.Logger.Error("failed to queue notification", "error", err, "message", message)
	}
}

// Drain removes and returns every pending toast, oldest first.
func (f *RedisFeed) Drain(ctx context.Context) ([]Toast, error) {
	pipe := f.Client.TxPipeline()
	items := pipe.LRange(ctx, feedKey, 0, -1)
	pipe.Del(ctx, feedKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to drain notifications: %w", err)
	}

	raw, err := items.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	toasts := make([]Toast, 0, len(raw))
	for _, item := range raw {
		var t Toast
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			f.Logger.Warn("skipping malformed notification", "error", err)
			continue
		}
		toasts = append(toasts, t)
	}
	return toasts, nil
}
