package shortener

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("link not found")
	ErrCodeTaken        = errors.New("short code taken")
	ErrGenerationFailed = errors.New("failed to generate short code")
)

// LinkRepository owns the persisted short-code → URL mappings. All mutating
// operations are single atomic database operations; the unique index on the
// short code is what ultimately guarantees global code uniqueness.
type LinkRepository interface {
	Create(ctx context.Context, link *ShortLink) error
	GetByCode(ctx context.Context, code string) (*ShortLink, error)
	FindExisting(ctx context.Context, ownerID int64, originalURL string) (*ShortLink, error)
	FindByOwner(ctx context.Context, ownerID int64, skip, limit int64) ([]*ShortLink, error)
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
	IncrementClicks(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string, ownerID int64) (bool, error)
	TopByOwner(ctx context.Context, ownerID int64, limit int64) ([]*ShortLink, error)
	TotalClicksByOwner(ctx context.Context, ownerID int64) (int64, error)
}

// UserRepository owns user profile documents.
type UserRepository interface {
	Upsert(ctx context.Context, profile *UserProfile) (*UserProfile, error)
	Get(ctx context.Context, ownerID int64) (*UserProfile, error)
}

// CodeGenerator produces random short-code candidates. Uniqueness is the
// allocator's concern, not the generator's.
type CodeGenerator interface {
	Generate(length int) (string, error)
}
