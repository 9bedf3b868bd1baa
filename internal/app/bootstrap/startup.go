// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	metricsstore "github.com/dalemusser/planhub/internal/app/store/metrics"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("timeouts configured",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	if deps.Metrics != nil {
		deps.Hub.SetObserver(deps.Metrics)
		db := deps.MongoDatabase
		fetch := func(ctx context.Context) metricsstore.Counts {
			return metricsstore.FetchCounts(ctx, db)
		}
		if err := deps.Metrics.RegisterCounts(fetch, timeouts.Short()); err != nil {
			logger.Error("register collection gauges failed", zap.Error(err))
			return err
		}
	}

	if deps.Scheduler != nil {
		deps.Scheduler.Start()
	}
	return nil
}
