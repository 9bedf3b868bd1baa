// internal/app/bootstrap/jobs.go
package bootstrap

import (
	loginstore "github.com/dalemusser/planhub/internal/app/store/logins"
	notificationstore "github.com/dalemusser/planhub/internal/app/store/notifications"
	"github.com/dalemusser/planhub/internal/app/system/tasks"
	"github.com/dalemusser/planhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// newScheduler builds the retention jobs. A zero retention leaves its job
// out; a zero interval disables both.
func newScheduler(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) *workers.Scheduler {
	var jobs []tasks.Job
	if appCfg.NotificationRetention > 0 {
		jobs = append(jobs, tasks.NotificationPruneJob(notificationstore.New(db), logger,
			appCfg.PruneInterval, appCfg.NotificationRetention))
	}
	if appCfg.LoginHistoryRetention > 0 {
		jobs = append(jobs, tasks.LoginHistoryPruneJob(loginstore.New(db), logger,
			appCfg.PruneInterval, appCfg.LoginHistoryRetention))
	}
	return workers.NewScheduler(logger, 0, jobs...)
}
