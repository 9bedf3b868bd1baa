// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/planhub/internal/app/system/metrics"
	"github.com/dalemusser/planhub/internal/app/system/ratelimit"
	"github.com/dalemusser/planhub/internal/app/system/realtime"
	"github.com/dalemusser/planhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies shared by every hook
// after ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// In-process back ends. Built in ConnectDB, wired in Startup, stopped in
	// Shutdown.
	Hub       *realtime.Hub
	Metrics   *metrics.Metrics
	Limiter   *ratelimit.LoginLimiter
	Scheduler *workers.Scheduler
}
