package mongo

import (
	"context"
	"time"

	"github.com/orlevy/shortly-bot/internal/infrastructure/db"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ActivityRepository writes interaction breadcrumbs into a separate monitor
// database. Reporting is best effort; failures are logged and swallowed so
// monitoring never breaks the request path.
type ActivityRepository struct {
	interactions *mongo.Collection
	activity     *mongo.Collection
	serviceName  string
}

func NewActivityRepository(m *db.Mongo, monitorDB, serviceName string) *ActivityRepository {
	monitor := m.WithDatabase(monitorDB)
	return &ActivityRepository{
		interactions: monitor.Collection("user_interactions"),
		activity:     monitor.Collection("service_activity"),
		serviceName:  serviceName,
	}
}

// RecordInteraction upserts the per-user interaction document, bumping the
// interaction counter and refreshing the last-seen timestamp.
func (r *ActivityRepository) RecordInteraction(ctx context.Context, userID int64, username, action string) {
	now := time.Now().UTC()

	_, err := r.interactions.UpdateOne(
		ctx,
		bson.M{"service": r.serviceName, "user_id": userID},
		bson.M{
			"$set": bson.M{
				"username":    username,
				"last_action": action,
				"last_seen":   now,
			},
			"$inc":         bson.M{"interactions": 1},
			"$setOnInsert": bson.M{"first_seen": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logger.Warn("activity interaction write failed", zap.Error(err))
	}
}

// Heartbeat refreshes the service liveness document.
func (r *ActivityRepository) Heartbeat(ctx context.Context, status string) {
	_, err := r.activity.UpdateOne(
		ctx,
		bson.M{"service": r.serviceName},
		bson.M{
			"$set": bson.M{
				"status":    status,
				"last_seen": time.Now().UTC(),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logger.Warn("activity heartbeat write failed", zap.Error(err))
	}
}

// Run emits heartbeats on an interval until ctx is cancelled.
func (r *ActivityRepository) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Heartbeat(ctx, "running")

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			r.Heartbeat(shutdownCtx, "stopped")
			cancel()
			return
		case <-ticker.C:
			r.Heartbeat(ctx, "running")
		}
	}
}
