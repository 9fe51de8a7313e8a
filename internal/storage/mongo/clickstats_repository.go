package mongo

import (
	"context"
	"time"

	"github.com/orlevy/shortly-bot/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClickStatsRepository maintains per-day click aggregates fed by the click
// event consumer. One document per (short_code, date) pair.
type ClickStatsRepository struct {
	coll *mongo.Collection
}

func NewClickStatsRepository(m *db.Mongo) (*ClickStatsRepository, error) {
	repo := &ClickStatsRepository{coll: m.Collection("clicks_daily")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "short_code", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_code_date"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// RecordClick bumps the daily counter for the code on the event's day.
func (r *ClickStatsRepository) RecordClick(ctx context.Context, code string, occurredAt time.Time) error {
	day := occurredAt.UTC().Format("2006-01-02")

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"short_code": code, "date": day},
		bson.M{
			"$inc": bson.M{"clicks": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
