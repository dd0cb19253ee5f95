package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-api/internal/domain"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ItemRepository defines the interface for item data access
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	FindByID(ctx context.Context, id int64) (*domain.Item, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context) ([]*domain.Item, error)
	ListByCategory(ctx context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id int64) (*domain.Item, error)
	DecrementStock(ctx context.Context, id int64, count int) error
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new instance of ItemRepository
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, name, price, stock, type, image_url, author, isbn, artist, etc, director, actor, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	item := &domain.Item{}
	var (
		imageURL, author, artist, etc, director, actor sql.NullString
		isbn                                           sql.NullInt64
	)
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Stock,
		&item.Type,
		&imageURL,
		&author,
		&isbn,
		&artist,
		&etc,
		&director,
		&actor,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	switch item.Type {
	case domain.ItemTypeBook:
		item.Book = &domain.BookDetails{Author: author.String, ISBN: isbn.Int64}
	case domain.ItemTypeAlbum:
		item.Album = &domain.AlbumDetails{Artist: artist.String, Etc: etc.String}
	case domain.ItemTypeMovie:
		item.Movie = &domain.MovieDetails{Director: director.String, Actor: actor.String}
	}
	return item, nil
}

// variantArgs flattens the active variant into the nullable columns
// author, isbn, artist, etc, director, actor.
func variantArgs(item *domain.Item) []any {
	args := make([]any, 6)
	switch {
	case item.Book != nil:
		args[0], args[1] = item.Book.Author, item.Book.ISBN
	case item.Album != nil:
		args[2], args[3] = item.Album.Artist, item.Album.Etc
	case item.Movie != nil:
		args[4], args[5] = item.Movie.Director, item.Movie.Actor
	}
	return args
}

func (r *itemRepository) queryItems(ctx context.Context, query string, args ...any) ([]*domain.Item, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// Create inserts an item with its variant columns
func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (name, price, stock, type, image_url, author, isbn, artist, etc, director, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	args := append([]any{item.Name, item.Price, item.Stock, string(item.Type), item.ImageURL}, variantArgs(item)...)
	err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// FindByID retrieves an item by ID
func (r *itemRepository) FindByID(ctx context.Context, id int64) (*domain.Item, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

// FindByIDForUpdate retrieves an item and locks its row until the
// surrounding transaction ends
func (r *itemRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
}

func (r *itemRepository) findOne(ctx context.Context, query string, id int64) (*domain.Item, error) {
	item, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item by ID: %w", err)
	}
	return item, nil
}

// List retrieves all items ordered by id
func (r *itemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id ASC`)
}

// ListByCategory returns the distinct items connected to the category or
// any of its descendants, optionally restricted to one item type
func (r *itemRepository) ListByCategory(ctx context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM categories WHERE id = $1
			UNION
			SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT ` + itemColumns + `
		FROM items
		WHERE id IN (
			SELECT ci.item_id FROM category_items ci JOIN subtree s ON ci.category_id = s.id
		)
		AND ($2::text IS NULL OR type = $2::text)
		ORDER BY id ASC
	`

	var typeArg any
	if itemType != nil {
		typeArg = string(*itemType)
	}
	return r.queryItems(ctx, query, categoryID, typeArg)
}

// Update changes the name, price and stock of an item
func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET name = $2, price = $3, stock = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, item.ID, item.Name, item.Price, item.Stock).
		Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to update item: %w", err)
	}

	return nil
}

// Delete removes an item and returns its final state
func (r *itemRepository) Delete(ctx context.Context, id int64) (*domain.Item, error) {
	query := `DELETE FROM items WHERE id = $1 RETURNING ` + itemColumns

	item, err := scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}

	return item, nil
}

// DecrementStock removes count units only if that many are available
func (r *itemRepository) DecrementStock(ctx context.Context, id int64, count int) error {
	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		`UPDATE items SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		id,
		count,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}
