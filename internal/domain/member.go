package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member is a shopper account.
type Member struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Zip          string    `json:"zip" db:"zip"`
	Addr1        string    `json:"addr1" db:"addr1"`
	Addr2        string    `json:"addr2" db:"addr2"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// MemberUpdate carries a partial update; nil fields are left untouched.
// Password is plaintext and gets hashed by the service.
type MemberUpdate struct {
	Name     *string
	Password *string
	Zip      *string
	Addr1    *string
	Addr2    *string
}

// Administrator lives in its own identity space with the same credential
// shape as Member.
type Administrator struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RefreshToken is an opaque long-lived token bound to an admin or member.
type RefreshToken struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SubjectType string    `json:"subject_type" db:"subject_type"`
	SubjectID   int64     `json:"subject_id" db:"subject_id"`
	Token       string    `json:"token" db:"token"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Revoked     bool      `json:"revoked" db:"revoked"`
}

// Claims are carried by access tokens. Subject holds the account email.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
