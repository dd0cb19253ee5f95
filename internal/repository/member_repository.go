package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-api/internal/domain"
)

var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member with this email already exists")
)

// MemberRepository defines the interface for member data access
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	FindByID(ctx context.Context, id int64) (*domain.Member, error)
	FindByEmail(ctx context.Context, email string) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
	Update(ctx context.Context, member *domain.Member) error
	Delete(ctx context.Context, id int64) error
}

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new instance of MemberRepository
func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, name, email, password_hash, zip, addr1, addr2, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*domain.Member, error) {
	member := &domain.Member{}
	err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Email,
		&member.PasswordHash,
		&member.Zip,
		&member.Addr1,
		&member.Addr2,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	return member, err
}

// Create inserts a new member and fills in the generated id and timestamps
func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (name, email, password_hash, zip, addr1, addr2)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := conn(ctx, r.db).QueryRowContext(
		ctx,
		query,
		member.Name,
		member.Email,
		member.PasswordHash,
		member.Zip,
		member.Addr1,
		member.Addr2,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "members_email_key") {
			return ErrMemberAlreadyExists
		}
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// FindByID retrieves a member by ID
func (r *memberRepository) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	member, err := scanMember(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member by ID: %w", err)
	}

	return member, nil
}

// FindByEmail retrieves a member by email
func (r *memberRepository) FindByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`

	member, err := scanMember(conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member by email: %w", err)
	}

	return member, nil
}

// List retrieves all members ordered by id
func (r *memberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY id ASC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*domain.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// Update overwrites the mutable member fields. Email is immutable.
func (r *memberRepository) Update(ctx context.Context, member *domain.Member) error {
	query := `
		UPDATE members
		SET name = $2, password_hash = $3, zip = $4, addr1 = $5, addr2 = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := conn(ctx, r.db).QueryRowContext(
		ctx,
		query,
		member.ID,
		member.Name,
		member.PasswordHash,
		member.Zip,
		member.Addr1,
		member.Addr2,
	).Scan(&member.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to update member: %w", err)
	}

	return nil
}

// Delete removes a member; their orders cascade
func (r *memberRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}
