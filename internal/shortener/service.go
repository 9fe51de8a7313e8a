package shortener

import (
	"context"
	"errors"
	"time"
)

// maxAllocationAttempts bounds the collision-avoidance loop. With a 62^6
// code space collisions are exceedingly rare; exhausting the bound means
// the code space is nearly saturated or the repository is unreachable.
const maxAllocationAttempts = 5

// ValidationError reports a rejected URL with one of the Reason* constants.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "url rejected: " + e.Reason }

type Service struct {
	links      LinkRepository
	users      UserRepository
	gen        CodeGenerator
	policy     SafetyPolicy
	codeLength int
	now        func() time.Time
}

func NewService(links LinkRepository, users UserRepository, gen CodeGenerator, policy SafetyPolicy, codeLength int) *Service {
	if codeLength <= 0 {
		codeLength = defaultCodeLength
	}

	return &Service{
		links:      links,
		users:      users,
		gen:        gen,
		policy:     policy,
		codeLength: codeLength,
		now:        time.Now,
	}
}

// Shorten validates and normalizes rawURL, reuses a prior shortening of the
// same (owner, URL) pair when one exists, and otherwise allocates a fresh
// collision-free code and persists the mapping. The bool result is true
// when a new link was created.
func (s *Service) Shorten(ctx context.Context, ownerID int64, rawURL string) (*ShortLink, bool, error) {
	normalized := Normalize(rawURL)

	if ok, reason := s.policy.CheckSafe(normalized); !ok {
		return nil, false, &ValidationError{Reason: reason}
	}

	existing, err := s.links.FindExisting(ctx, ownerID, normalized)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	link := &ShortLink{
		OwnerID:     ownerID,
		OriginalURL: normalized,
		CreatedAt:   s.now().UTC(),
	}

	for range maxAllocationAttempts {
		code, err := s.gen.Generate(s.codeLength)
		if err != nil {
			return nil, false, err
		}

		_, err = s.links.GetByCode(ctx, code)
		if err == nil {
			// collision, try another candidate
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}

		link.ShortCode = code
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				// lost the insert race, the unique index caught it
				continue
			}
			return nil, false, err
		}

		return link, true, nil
	}

	return nil, false, ErrGenerationFailed
}

// GetLink is a point lookup by short code.
func (s *Service) GetLink(ctx context.Context, code string) (*ShortLink, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return s.links.GetByCode(ctx, code)
}

// RecordClick atomically bumps the click counter and last-click timestamp.
// Returns ErrNotFound when no link matches.
func (s *Service) RecordClick(ctx context.Context, code string) error {
	matched, err := s.links.IncrementClicks(ctx, code)
	if err != nil {
		return err
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns one page of the owner's links, newest first, plus the
// owner's total link count.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64, page, perPage int64) ([]*ShortLink, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	total, err := s.links.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	items, err := s.links.FindByOwner(ctx, ownerID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Delete removes the link only when both code and owner match.
func (s *Service) Delete(ctx context.Context, code string, ownerID int64) error {
	deleted, err := s.links.Delete(ctx, code, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// TouchUser creates or refreshes the user profile for an interaction.
func (s *Service) TouchUser(ctx context.Context, ownerID int64, username, firstName, lastName string) error {
	_, err := s.users.Upsert(ctx, &UserProfile{
		OwnerID:   ownerID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		LastSeen:  s.now().UTC(),
	})
	return err
}

// Stats aggregates per-owner statistics for the bot's /stats view.
func (s *Service) Stats(ctx context.Context, ownerID int64) (*UserStats, error) {
	profile, err := s.users.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	total, err := s.links.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	clicks, err := s.links.TotalClicksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	top, err := s.links.TopByOwner(ctx, ownerID, 1)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		OwnerID:     ownerID,
		MemberSince: profile.CreatedAt,
		TotalLinks:  total,
		TotalClicks: clicks,
	}
	if len(top) > 0 {
		stats.TopLink = top[0]
	}

	return stats, nil
}
