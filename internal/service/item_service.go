package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shop-api/internal/config"
	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

// StaticPrefix is the URL path uploaded images are served under
const StaticPrefix = "/static/"

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ItemUpdate carries a partial update of the common item fields
type ItemUpdate struct {
	Name  *string
	Price *int64
	Stock *int
}

// ItemService manages the item catalog
type ItemService interface {
	CreateBook(ctx context.Context, name string, price int64, stock int, author string, isbn int64) (*domain.Item, error)
	CreateAlbum(ctx context.Context, name string, price int64, stock int, artist, etc string) (*domain.Item, error)
	CreateMovie(ctx context.Context, name string, price int64, stock int, director, actor string) (*domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	ListItems(ctx context.Context) ([]*domain.Item, error)
	ListItemsWithCategories(ctx context.Context) ([]*domain.ItemWithCategories, error)
	UpdateItem(ctx context.Context, id int64, update ItemUpdate) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) (*domain.Item, error)
	GetItemsByCategory(ctx context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error)
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
	ExportItems(ctx context.Context, w io.Writer) error
}

type itemService struct {
	items      repository.ItemRepository
	categories repository.CategoryRepository
	upload     config.UploadConfig
	logger     *zap.Logger
}

// NewItemService creates a new instance of ItemService
func NewItemService(
	items repository.ItemRepository,
	categories repository.CategoryRepository,
	upload config.UploadConfig,
	logger *zap.Logger,
) ItemService {
	return &itemService{
		items:      items,
		categories: categories,
		upload:     upload,
		logger:     logger,
	}
}

func (s *itemService) CreateBook(ctx context.Context, name string, price int64, stock int, author string, isbn int64) (*domain.Item, error) {
	return s.create(ctx, domain.NewBook(name, price, stock, author, isbn))
}

func (s *itemService) CreateAlbum(ctx context.Context, name string, price int64, stock int, artist, etc string) (*domain.Item, error) {
	return s.create(ctx, domain.NewAlbum(name, price, stock, artist, etc))
}

func (s *itemService) CreateMovie(ctx context.Context, name string, price int64, stock int, director, actor string) (*domain.Item, error) {
	return s.create(ctx, domain.NewMovie(name, price, stock, director, actor))
}

func (s *itemService) create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, wrap(ErrInvalidInput, err)
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	s.logger.Info("Item created", zap.Int64("item_id", item.ID), zap.String("type", string(item.Type)))
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *itemService) ListItems(ctx context.Context) ([]*domain.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// ListItemsWithCategories pairs each item with its category summaries
func (s *itemService) ListItemsWithCategories(ctx context.Context) ([]*domain.ItemWithCategories, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	summaries, err := s.categories.SummariesByItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load item categories: %w", err)
	}

	out := make([]*domain.ItemWithCategories, len(items))
	for i, item := range items {
		cats := summaries[item.ID]
		if cats == nil {
			cats = []domain.CategorySummary{}
		}
		out[i] = &domain.ItemWithCategories{Item: item, Categories: cats}
	}
	return out, nil
}

// UpdateItem changes name, price and stock. Variant fields are immutable.
func (s *itemService) UpdateItem(ctx context.Context, id int64, update ItemUpdate) (*domain.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.Stock != nil {
		item.Stock = *update.Stock
	}
	if err := item.Validate(); err != nil {
		return nil, wrap(ErrInvalidInput, err)
	}

	if err := s.items.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item and returns its final state
func (s *itemService) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.items.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	s.logger.Info("Item deleted", zap.Int64("item_id", id))
	return item, nil
}

// GetItemsByCategory returns the items of a category and all of its
// descendants, each item once
func (s *itemService) GetItemsByCategory(ctx context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	items, err := s.items.ListByCategory(ctx, categoryID, itemType)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by category: %w", err)
	}
	return items, nil
}

// UploadImage stores an image under a random name and returns its URL
func (s *itemService) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return "", invalid("unsupported image extension %q", ext)
	}

	if err := os.MkdirAll(s.upload.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.upload.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, s.upload.MaxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to store image: %w", err)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to store image: %w", closeErr)
	case written > s.upload.MaxBytes:
		_ = os.Remove(path)
		return "", invalid("image exceeds %d bytes", s.upload.MaxBytes)
	}

	s.logger.Info("Image uploaded", zap.String("file", name), zap.Int64("bytes", written))
	return StaticPrefix + name, nil
}

var exportHeaders = []string{
	"ID", "Type", "Name", "Price", "Stock",
	"Author", "ISBN", "Artist", "Etc", "Director", "Actor",
	"Categories", "CreatedAt", "UpdatedAt",
}

// ExportItems writes the catalog as an xlsx workbook, one row per item
func (s *itemService) ExportItems(ctx context.Context, w io.Writer) error {
	items, err := s.ListItemsWithCategories(ctx)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, entry := range items {
		item := entry.Item
		row := sheet.AddRow()
		row.AddCell().SetValue(item.ID)
		row.AddCell().SetValue(string(item.Type))
		row.AddCell().SetValue(item.Name)
		row.AddCell().SetValue(item.Price)
		row.AddCell().SetValue(item.Stock)

		var author, isbn, artist, etc, director, actor string
		switch {
		case item.Book != nil:
			author, isbn = item.Book.Author, strconv.FormatInt(item.Book.ISBN, 10)
		case item.Album != nil:
			artist, etc = item.Album.Artist, item.Album.Etc
		case item.Movie != nil:
			director, actor = item.Movie.Director, item.Movie.Actor
		}
		for _, v := range []string{author, isbn, artist, etc, director, actor} {
			row.AddCell().SetValue(v)
		}

		names := make([]string, len(entry.Categories))
		for i, c := range entry.Categories {
			names[i] = c.Name
		}
		row.AddCell().SetValue(strings.Join(names, ","))
		row.AddCell().SetValue(item.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(item.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
