package verification

import (
	"context"
	"errors"
	"time"

	"github.com/phone-verification-api/internal/domain"
	"github.com/phone-verification-api/internal/pkg/id"
)

type Service interface {
	// UpsertByUsername updates the latest record for req.Username in place, or
	// inserts a new one when the username has none. Callers tell the two
	// outcomes apart with (*domain.Verification).IsCreated.
	UpsertByUsername(ctx context.Context, req domain.UpsertVerificationRequest) (*domain.Verification, error)
	ListAll(ctx context.Context) ([]domain.Verification, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Verification, error)
	FindPhoneByUsername(ctx context.Context, username string) (string, error)
}

// Store is implemented by every storage driver.
type Store interface {
	FindLatestByUsername(ctx context.Context, username string) (*domain.Verification, error)
	Insert(ctx context.Context, v *domain.Verification) error
	UpdateByID(ctx context.Context, id, phone, code string, updatedAt time.Time) error
	ListAll(ctx context.Context) ([]domain.Verification, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Verification, error)
	FindPhoneByUsername(ctx context.Context, username string) (string, error)
}

type service struct {
	repo Store
	now  func() time.Time
}

func NewService(repo Store) Service {
	return &service{repo: repo, now: time.Now}
}

// timestamp returns the current time at the precision the stores persist.
func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// UpsertByUsername is a read followed by a conditional write with no
// transaction around it. Two concurrent first-time upserts for the same
// username can both miss on the read and both insert; the later CreatedAt
// then becomes the current row.
func (s *service) UpsertByUsername(ctx context.Context, req domain.UpsertVerificationRequest) (*domain.Verification, error) {
	existing, err := s.repo.FindLatestByUsername(ctx, req.Username)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.create(ctx, req)
	case err != nil:
		return nil, err
	}

	updatedAt := s.timestamp()
	// UpdatedAt must move strictly forward or the record would read as freshly created.
	if !updatedAt.After(existing.UpdatedAt) {
		updatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}
	if err := s.repo.UpdateByID(ctx, existing.ID, req.Phone, req.VerificationCode, updatedAt); err != nil {
		return nil, err
	}
	existing.Phone = req.Phone
	existing.VerificationCode = req.VerificationCode
	existing.UpdatedAt = updatedAt
	return existing, nil
}

func (s *service) create(ctx context.Context, req domain.UpsertVerificationRequest) (*domain.Verification, error) {
	now := s.timestamp()
	v := &domain.Verification{
		ID:               id.NewAt(now),
		Phone:            req.Phone,
		Username:         req.Username,
		VerificationCode: req.VerificationCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) ListAll(ctx context.Context) ([]domain.Verification, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) ListByUsername(ctx context.Context, username string) ([]domain.Verification, error) {
	return s.repo.ListByUsername(ctx, username)
}

func (s *service) FindPhoneByUsername(ctx context.Context, username string) (string, error) {
	return s.repo.FindPhoneByUsername(ctx, username)
}
