package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/orlevy/shortly-bot/internal/infrastructure/db"
	"github.com/orlevy/shortly-bot/internal/shortener"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UsersRepository struct {
	coll *mongo.Collection
}

type userDoc struct {
	UserID    int64     `bson:"user_id"`
	Username  string    `bson:"username,omitempty"`
	FirstName string    `bson:"first_name,omitempty"`
	LastName  string    `bson:"last_name,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	LastSeen  time.Time `bson:"last_seen"`
}

func NewUsersRepository(m *db.Mongo) (*UsersRepository, error) {
	repo := &UsersRepository{coll: m.Collection("users")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user_id"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// Upsert records the user on every interaction and returns the stored
// profile. created_at is written only on first insert so it keeps the
// original registration time.
func (r *UsersRepository) Upsert(ctx context.Context, profile *shortener.UserProfile) (*shortener.UserProfile, error) {
	set := bson.M{"last_seen": profile.LastSeen.UTC()}
	if profile.Username != "" {
		set["username"] = profile.Username
	}
	if profile.FirstName != "" {
		set["first_name"] = profile.FirstName
	}
	if profile.LastName != "" {
		set["last_name"] = profile.LastName
	}

	var doc userDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": profile.OwnerID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": profile.LastSeen.UTC()},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}

	return mapUserDoc(doc), nil
}

func (r *UsersRepository) Get(ctx context.Context, ownerID int64) (*shortener.UserProfile, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"user_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shortener.ErrNotFound
		}
		return nil, err
	}

	return mapUserDoc(doc), nil
}

func mapUserDoc(doc userDoc) *shortener.UserProfile {
	return &shortener.UserProfile{
		OwnerID:   doc.UserID,
		Username:  doc.Username,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		CreatedAt: doc.CreatedAt,
		LastSeen:  doc.LastSeen,
	}
}
