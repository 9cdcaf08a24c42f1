package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/phone-verification-api/internal/domain"
)

const selectColumns = `SELECT id, phone, username, verification_code, created_at, updated_at
		FROM phone_verifications`

// VerificationRepo stores phone verification rows in a single relational table.
// Rows for a username are never deleted; the newest by created_at is the current one.
type VerificationRepo struct {
	db DB
}

func NewVerificationRepo(db DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) FindLatestByUsername(ctx context.Context, username string) (*domain.Verification, error) {
	q := selectColumns + `
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT 1`
	v, err := scanVerification(r.db.QueryRow(ctx, q, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("verification for %q: %w", username, domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("find latest verification", err)
	}
	return v, nil
}

func (r *VerificationRepo) Insert(ctx context.Context, v *domain.Verification) error {
	q := `
		INSERT INTO phone_verifications (id, phone, username, verification_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, q, v.ID, v.Phone, v.Username, v.VerificationCode, v.CreatedAt, v.UpdatedAt)
	return domain.NewStorageError("insert verification", err)
}

func (r *VerificationRepo) UpdateByID(ctx context.Context, id, phone, code string, updatedAt time.Time) error {
	q := `
		UPDATE phone_verifications
		SET verification_code = $1, phone = $2, updated_at = $3
		WHERE id = $4`
	_, err := r.db.Exec(ctx, q, code, phone, updatedAt, id)
	return domain.NewStorageError("update verification", err)
}

func (r *VerificationRepo) ListAll(ctx context.Context) ([]domain.Verification, error) {
	q := selectColumns + `
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, domain.NewStorageError("list verifications", err)
	}
	return collect(rows, "list verifications")
}

func (r *VerificationRepo) ListByUsername(ctx context.Context, username string) ([]domain.Verification, error) {
	q := selectColumns + `
		WHERE username = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, username)
	if err != nil {
		return nil, domain.NewStorageError("list verifications by username", err)
	}
	return collect(rows, "list verifications by username")
}

func (r *VerificationRepo) FindPhoneByUsername(ctx context.Context, username string) (string, error) {
	q := `
		SELECT phone
		FROM phone_verifications
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT 1`
	var phone string
	if err := r.db.QueryRow(ctx, q, username).Scan(&phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("phone for %q: %w", username, domain.ErrNotFound)
		}
		return "", domain.NewStorageError("find phone by username", err)
	}
	return phone, nil
}

func scanVerification(row pgx.Row) (*domain.Verification, error) {
	var v domain.Verification
	if err := row.Scan(&v.ID, &v.Phone, &v.Username, &v.VerificationCode, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

func collect(rows pgx.Rows, op string) ([]domain.Verification, error) {
	defer rows.Close()

	out := []domain.Verification{}
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return out, nil
}
