package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/regkit/regkit/internal/model"
)

var ErrVerificationNotFound = errors.New("verification not found")

type VerificationRepository interface {
	Replace(verification *model.Verification) error
	ByEmail(email string) (*model.Verification, error)
	Delete(email string) error
}

type verificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

// Replace inserts a verification record, overwriting any outstanding one for
// the same email. At most one record per email exists at any time.
func (r *verificationRepository) Replace(verification *model.Verification) error {
	if verification.ID == "" {
		verification.ID = uuid.New().String()
	}
	if verification.CreatedAt.IsZero() {
		verification.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO verifications (id, email, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(email) DO UPDATE SET
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`
	_, err := r.db.Exec(query,
		verification.ID,
		verification.Email,
		verification.CodeHash,
		verification.ExpiresAt,
		verification.CreatedAt,
	)
	return err
}

func (r *verificationRepository) ByEmail(email string) (*model.Verification, error) {
	verification := &model.Verification{}
	query := `SELECT * FROM verifications WHERE email = $1`

	err := r.db.Get(verification, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrVerificationNotFound
	}

	return verification, err
}

func (r *verificationRepository) Delete(email string) error {
	query := `DELETE FROM verifications WHERE email = $1`
	_, err := r.db.Exec(query, email)
	return err
}
