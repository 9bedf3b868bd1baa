// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	loginstore "github.com/dalemusser/planhub/internal/app/store/logins"
	notificationstore "github.com/dalemusser/planhub/internal/app/store/notifications"
	"go.uber.org/zap"
)

// Job is a named unit of periodic background work. Run receives a context
// bounded by the scheduler's per-run timeout.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// NotificationPruneJob deletes read UPDATE notifications older than
// retention. Pending invites are left alone.
func NotificationPruneJob(store *notificationstore.Store, logger *zap.Logger, interval, retention time.Duration) Job {
	return Job{
		Name:     "notification-prune",
		Interval: interval,
		Run: func(ctx context.Context) error {
			count, err := store.DeleteReadUpdatesBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("pruned read notifications",
					zap.Int64("count", count),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}

// LoginHistoryPruneJob deletes login records older than retention.
func LoginHistoryPruneJob(store *loginstore.Store, logger *zap.Logger, interval, retention time.Duration) Job {
	return Job{
		Name:     "login-history-prune",
		Interval: interval,
		Run: func(ctx context.Context) error {
			count, err := store.DeleteBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("pruned login history", zap.Int64("count", count))
			}
			return nil
		},
	}
}
