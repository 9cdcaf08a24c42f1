package domain

import "time"

// Verification is one phone-verification row. Several rows may exist for a
// username; the one with the greatest CreatedAt is the current one.
type Verification struct {
	ID               string    `json:"id"`
	Phone            string    `json:"phone"`
	Username         string    `json:"username"`
	VerificationCode string    `json:"verification_code"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsCreated reports whether v has never been updated since it was inserted.
func (v *Verification) IsCreated() bool {
	return v.CreatedAt.Equal(v.UpdatedAt)
}

type UpsertVerificationRequest struct {
	Phone            string `json:"phone"`
	Username         string `json:"username" validate:"min=2,max=100"`
	VerificationCode string `json:"verification_code" validate:"min=4,max=8"`
}

type PhoneLookupRequest struct {
	Username string `json:"username" validate:"min=2,max=100"`
}

type PhoneLookup struct {
	Phone    string `json:"phone"`
	Username string `json:"username"`
}
