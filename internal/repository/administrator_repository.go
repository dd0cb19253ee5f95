package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-api/internal/domain"
)

var (
	ErrAdministratorNotFound      = errors.New("administrator not found")
	ErrAdministratorAlreadyExists = errors.New("administrator with this email already exists")
)

// AdministratorRepository defines the interface for administrator data access
type AdministratorRepository interface {
	Create(ctx context.Context, admin *domain.Administrator) error
	FindByID(ctx context.Context, id int64) (*domain.Administrator, error)
	FindByEmail(ctx context.Context, email string) (*domain.Administrator, error)
}

type administratorRepository struct {
	db *sql.DB
}

// NewAdministratorRepository creates a new instance of AdministratorRepository
func NewAdministratorRepository(db *sql.DB) AdministratorRepository {
	return &administratorRepository{db: db}
}

func (r *administratorRepository) Create(ctx context.Context, admin *domain.Administrator) error {
	query := `
		INSERT INTO administrators (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, admin.Name, admin.Email, admin.PasswordHash).
		Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "administrators_email_key") {
			return ErrAdministratorAlreadyExists
		}
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	return nil
}

func (r *administratorRepository) FindByID(ctx context.Context, id int64) (*domain.Administrator, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *administratorRepository) FindByEmail(ctx context.Context, email string) (*domain.Administrator, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *administratorRepository) findOne(ctx context.Context, where string, arg any) (*domain.Administrator, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM administrators ` + where

	admin := &domain.Administrator{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdministratorNotFound
		}
		return nil, fmt.Errorf("failed to find administrator: %w", err)
	}

	return admin, nil
}
