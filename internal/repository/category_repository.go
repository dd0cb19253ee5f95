package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shop-api/internal/domain"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryItemNotFound  = errors.New("item is not connected to category")
)

// categoryTreeLockKey identifies the advisory lock serializing structural
// edits of the category hierarchy.
const categoryTreeLockKey int64 = 0x63617465676f7279

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Search(ctx context.Context, keyword string) ([]*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	SetParent(ctx context.Context, childID, parentID int64) error
	Delete(ctx context.Context, id int64) error
	LockTree(ctx context.Context) error

	Connect(ctx context.Context, categoryID, itemID int64) error
	Disconnect(ctx context.Context, categoryID, itemID int64) error
	ListByItem(ctx context.Context, itemID int64) ([]*domain.Category, error)
	SummariesByItems(ctx context.Context, itemIDs []int64) (map[int64][]domain.CategorySummary, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, parent_id, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*domain.Category, error) {
	category := &domain.Category{}
	var parentID sql.NullInt64
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&parentID,
		&category.CreatedAt,
	); err != nil {
		return nil, err
	}
	if parentID.Valid {
		category.ParentID = &parentID.Int64
	}
	return category, nil
}

func (r *categoryRepository) queryCategories(ctx context.Context, query string, args ...any) ([]*domain.Category, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Create inserts a new root category
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, category.Name, category.Description).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	category.ParentID = nil
	return nil
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindByName returns the lowest-id category with the given name
func (r *categoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = $1 ORDER BY id ASC LIMIT 1`

	category, err := scanCategory(conn(ctx, r.db).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}

	return category, nil
}

// List retrieves all categories ordered by id
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return r.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id ASC`)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches the keyword as a case-insensitive substring of the name
func (r *categoryRepository) Search(ctx context.Context, keyword string) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name ILIKE $1 ORDER BY id ASC`
	return r.queryCategories(ctx, query, "%"+likeEscaper.Replace(keyword)+"%")
}

// Update renames a category and replaces its description
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1`,
		category.ID,
		category.Name,
		category.Description,
	)
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// SetParent points childID at parentID. Cycle checks are the caller's job.
func (r *categoryRepository) SetParent(ctx context.Context, childID, parentID int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE categories SET parent_id = $2 WHERE id = $1`, childID, parentID)
	if err != nil {
		return fmt.Errorf("failed to set category parent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete removes a category. Its item edges cascade and its children
// become roots.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// LockTree takes the hierarchy advisory lock for the rest of the current
// transaction. It must be called with a transactional context.
func (r *categoryRepository) LockTree(ctx context.Context) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); !ok {
		return errors.New("category tree lock requires a transaction")
	}
	if _, err := conn(ctx, r.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, categoryTreeLockKey); err != nil {
		return fmt.Errorf("failed to lock category tree: %w", err)
	}
	return nil
}

// Connect links an item to a category. Existing links are left as is.
func (r *categoryRepository) Connect(ctx context.Context, categoryID, itemID int64) error {
	query := `
		INSERT INTO category_items (category_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (category_id, item_id) DO NOTHING
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, categoryID, itemID); err != nil {
		return fmt.Errorf("failed to connect item to category: %w", err)
	}
	return nil
}

// Disconnect removes the link between an item and a category
func (r *categoryRepository) Disconnect(ctx context.Context, categoryID, itemID int64) error {
	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`DELETE FROM category_items WHERE category_id = $1 AND item_id = $2`,
		categoryID,
		itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to disconnect item from category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryItemNotFound
	}

	return nil
}

// ListByItem returns the categories an item is directly connected to
func (r *categoryRepository) ListByItem(ctx context.Context, itemID int64) ([]*domain.Category, error) {
	query := `
		SELECT c.id, c.name, c.description, c.parent_id, c.created_at
		FROM categories c
		JOIN category_items ci ON ci.category_id = c.id
		WHERE ci.item_id = $1
		ORDER BY c.id ASC
	`
	return r.queryCategories(ctx, query, itemID)
}

// SummariesByItems returns, per item id, the categories it is connected to
func (r *categoryRepository) SummariesByItems(ctx context.Context, itemIDs []int64) (map[int64][]domain.CategorySummary, error) {
	summaries := make(map[int64][]domain.CategorySummary, len(itemIDs))
	if len(itemIDs) == 0 {
		return summaries, nil
	}

	query := `
		SELECT ci.item_id, c.id, c.name
		FROM category_items ci
		JOIN categories c ON c.id = ci.category_id
		WHERE ci.item_id = ANY($1)
		ORDER BY ci.item_id ASC, c.id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list item categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var summary domain.CategorySummary
		if err := rows.Scan(&itemID, &summary.ID, &summary.Name); err != nil {
			return nil, fmt.Errorf("failed to scan item category: %w", err)
		}
		summaries[itemID] = append(summaries[itemID], summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item categories: %w", err)
	}

	return summaries, nil
}
