package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TokenStore is the slice of the receiving repository the cleanup needs.
type TokenStore interface {
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleaner prunes consumed receipt tokens past the retention window.
type TokenCleaner struct {
	store     TokenStore
	retention time.Duration
	logger    *slog.Logger
}

// NewTokenCleaner constructs the cleanup handler. retention is the default
// window used when the task payload does not override it.
func NewTokenCleaner(store TokenStore, retention time.Duration, logger *slog.Logger) *TokenCleaner {
	return &TokenCleaner{store: store, retention: retention, logger: logger}
}

// Handle processes TaskTokenCleanup tasks.
func (c *TokenCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload TokenCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := c.retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	removed, err := c.store.DeleteExpiredTokens(ctx, time.Now().Add(-retention))
	if err != nil {
		c.logger.Error("token cleanup failed", slog.Any("error", err))
		return err
	}
	c.logger.Info("receipt tokens pruned",
		slog.Int64("removed", removed),
		slog.Duration("retention", retention))
	return nil
}
