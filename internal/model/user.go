package model

import (
	"time"
)

type User struct {
	ID                     string     `db:"id"`
	Email                  string     `db:"email"`
	PasswordHash           string     `db:"password_hash"`
	IsActive               bool       `db:"is_active"`
	IsVerified             bool       `db:"is_verified"`
	IsVerificationMailSent bool       `db:"is_verification_mail_sent"`
	VerifiedAt             *time.Time `db:"verified_at"`
	CreatedAt              time.Time  `db:"created_at"`
}
