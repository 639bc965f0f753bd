package model

import (
	"time"
)

// Verification is the persisted alternative to the self-contained token: one
// hashed code per email, replaced on re-registration so stale codes never
// accumulate. The row is deleted once verification succeeds.
type Verification struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	CodeHash  string    `db:"code_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (v *Verification) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}
