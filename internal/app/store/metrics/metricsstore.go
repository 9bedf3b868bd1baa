package metricsstore

import (
	"context"

	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges on /metrics.
type Counts struct {
	Users          int64
	Workspaces     int64
	Projects       int64
	WorkItems      int64
	PendingInvites int64
}

// FetchCounts returns collection totals. Tolerant: on error a counter
// stays 0 so one slow collection never fails a scrape.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	count := func(coll string, filter bson.M, dst *int64) {
		if n, err := db.Collection(coll).CountDocuments(ctx, filter); err == nil {
			*dst = n
		}
	}

	count("users", bson.M{}, &out.Users)
	count("workspaces", bson.M{}, &out.Workspaces)
	count("projects", bson.M{}, &out.Projects)
	count("work_items", bson.M{}, &out.WorkItems)
	count("notifications", bson.M{"type": models.NotificationInvite}, &out.PendingInvites)

	return out
}
