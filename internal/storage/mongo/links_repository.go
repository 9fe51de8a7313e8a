package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/orlevy/shortly-bot/internal/infrastructure/db"
	"github.com/orlevy/shortly-bot/internal/shortener"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      int64              `bson:"user_id"`
	OriginalURL string             `bson:"original_url"`
	ShortCode   string             `bson:"short_code"`
	CreatedAt   time.Time          `bson:"created_at"`
	Clicks      int64              `bson:"clicks"`
	LastClicked *time.Time         `bson:"last_clicked"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection("urls")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "short_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_short_code"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_createdAt_desc"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Create(ctx context.Context, link *shortener.ShortLink) error {
	doc := linkDoc{
		UserID:      link.OwnerID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		CreatedAt:   link.CreatedAt.UTC(),
		Clicks:      0,
		LastClicked: nil,
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return shortener.ErrCodeTaken
	}

	return err
}

func (r *LinksRepository) GetByCode(ctx context.Context, code string) (*shortener.ShortLink, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"short_code": code}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shortener.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) FindExisting(ctx context.Context, ownerID int64, originalURL string) (*shortener.ShortLink, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{
		"user_id":      ownerID,
		"original_url": originalURL,
	}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shortener.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) FindByOwner(ctx context.Context, ownerID int64, skip, limit int64) ([]*shortener.ShortLink, error) {
	cur, err := r.coll.Find(
		ctx,
		bson.M{"user_id": ownerID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return decodeLinks(ctx, cur)
}

func (r *LinksRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"user_id": ownerID})
}

// IncrementClicks is a single atomic update so concurrent redirects never
// lose a count. Returns whether a matching record existed.
func (r *LinksRepository) IncrementClicks(ctx context.Context, code string) (bool, error) {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"short_code": code},
		bson.M{
			"$inc": bson.M{"clicks": 1},
			"$set": bson.M{"last_clicked": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes the record only when both code and owner match; ownership
// is part of the delete predicate itself.
func (r *LinksRepository) Delete(ctx context.Context, code string, ownerID int64) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{
		"short_code": code,
		"user_id":    ownerID,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *LinksRepository) TopByOwner(ctx context.Context, ownerID int64, limit int64) ([]*shortener.ShortLink, error) {
	if limit <= 0 {
		limit = 5
	}

	cur, err := r.coll.Find(
		ctx,
		bson.M{"user_id": ownerID},
		options.Find().
			SetSort(bson.D{{Key: "clicks", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return decodeLinks(ctx, cur)
}

func (r *LinksRepository) TotalClicksByOwner(ctx context.Context, ownerID int64) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": ownerID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$clicks"}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return 0, err
		}
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}

	return result.Total, nil
}

func decodeLinks(ctx context.Context, cur *mongo.Cursor) ([]*shortener.ShortLink, error) {
	out := make([]*shortener.ShortLink, 0)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapLinkDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func mapLinkDoc(doc linkDoc) *shortener.ShortLink {
	return &shortener.ShortLink{
		OwnerID:     doc.UserID,
		OriginalURL: doc.OriginalURL,
		ShortCode:   doc.ShortCode,
		CreatedAt:   doc.CreatedAt,
		Clicks:      doc.Clicks,
		LastClicked: doc.LastClicked,
	}
}
