package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phone-verification-api/internal/domain"
)

// VerificationRepo keeps verification rows in process memory. It follows the
// same ordering rules as the persistent drivers and is safe for concurrent use.
type VerificationRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.Verification
}

func NewVerificationRepo() *VerificationRepo {
	return &VerificationRepo{rows: make(map[string]domain.Verification)}
}

func (r *VerificationRepo) FindLatestByUsername(_ context.Context, username string) (*domain.Verification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.filter(username)
	if len(matches) == 0 {
		return nil, fmt.Errorf("verification for %q: %w", username, domain.ErrNotFound)
	}
	return &matches[0], nil
}

func (r *VerificationRepo) Insert(_ context.Context, v *domain.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[v.ID]; ok {
		return domain.NewStorageError("insert verification", fmt.Errorf("duplicate id %q", v.ID))
	}
	r.rows[v.ID] = *v
	return nil
}

func (r *VerificationRepo) UpdateByID(_ context.Context, id, phone, code string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	row.Phone = phone
	row.VerificationCode = code
	row.UpdatedAt = updatedAt
	r.rows[id] = row
	return nil
}

func (r *VerificationRepo) ListAll(_ context.Context) ([]domain.Verification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Verification, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *VerificationRepo) ListByUsername(_ context.Context, username string) ([]domain.Verification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(username), nil
}

func (r *VerificationRepo) FindPhoneByUsername(ctx context.Context, username string) (string, error) {
	v, err := r.FindLatestByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return v.Phone, nil
}

// filter returns the rows for username, newest first. Callers hold r.mu.
func (r *VerificationRepo) filter(username string) []domain.Verification {
	out := []domain.Verification{}
	for _, row := range r.rows {
		if row.Username == username {
			out = append(out, row)
		}
	}
	sortNewestFirst(out)
	return out
}

// sortNewestFirst orders by CreatedAt descending; ties fall back to id so the order is stable.
func sortNewestFirst(rows []domain.Verification) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
}
