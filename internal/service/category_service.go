package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"go.uber.org/zap"
)

// CategoryService manages the category hierarchy and its item links
type CategoryService interface {
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	AddChild(ctx context.Context, parentName, childName string) (*domain.Category, error)
	AddParent(ctx context.Context, childName, parentName string) (*domain.Category, error)
	RemoveCategory(ctx context.Context, name string) error
	UpdateCategory(ctx context.Context, name, newName, newDescription string) (*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	GetAllCategories(ctx context.Context) ([]*domain.CategoryNode, error)
	GetAllCategoriesFlat(ctx context.Context) ([]*domain.Category, error)
	SearchCategories(ctx context.Context, keyword string) ([]*domain.Category, error)

	Connect(ctx context.Context, itemID int64, categoryName string) error
	Disconnect(ctx context.Context, itemID int64, categoryName string) error
	GetCategoriesByItem(ctx context.Context, itemID int64) ([]*domain.Category, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	items      repository.ItemRepository
	tx         repository.Transactor
	logger     *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(
	categories repository.CategoryRepository,
	items repository.ItemRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) CategoryService {
	return &categoryService{
		categories: categories,
		items:      items,
		tx:         tx,
		logger:     logger,
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}

	category := &domain.Category{Name: name, Description: description}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, wrap(ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// AddChild places child under parent and returns the parent
func (s *categoryService) AddChild(ctx context.Context, parentName, childName string) (*domain.Category, error) {
	parent, _, err := s.link(ctx, parentName, childName)
	return parent, err
}

// AddParent places child under parent and returns the child
func (s *categoryService) AddParent(ctx context.Context, childName, parentName string) (*domain.Category, error) {
	_, child, err := s.link(ctx, parentName, childName)
	return child, err
}

// link runs the cycle check and the parent update under the tree lock so
// concurrent edits cannot interleave between check and write.
func (s *categoryService) link(ctx context.Context, parentName, childName string) (parent, child *domain.Category, err error) {
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.categories.LockTree(ctx); err != nil {
			return err
		}

		if parent, err = s.findByName(ctx, parentName); err != nil {
			return err
		}
		if child, err = s.findByName(ctx, childName); err != nil {
			return err
		}

		all, err := s.categories.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		tree := domain.NewCategoryTree(all)
		if err := tree.Link(parent.ID, child.ID); err != nil {
			return wrap(ErrConflict, err)
		}
		if linked, ok := tree.Get(child.ID); ok {
			child = linked
		}

		if err := s.categories.SetParent(ctx, child.ID, parent.ID); err != nil {
			return fmt.Errorf("failed to link categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Category linked",
		zap.Int64("parent_id", parent.ID),
		zap.Int64("child_id", child.ID),
	)
	return parent, child, nil
}

func (s *categoryService) findByName(ctx context.Context, name string) (*domain.Category, error) {
	category, err := s.categories.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, wrap(ErrNotFound, fmt.Errorf("category %q: %w", name, err))
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return category, nil
}

// RemoveCategory deletes a category. Its children become roots.
func (s *categoryService) RemoveCategory(ctx context.Context, name string) error {
	category, err := s.findByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, category.ID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return wrap(ErrNotFound, err)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.logger.Info("Category removed", zap.Int64("category_id", category.ID))
	return nil
}

// UpdateCategory renames and redescribes a category. An empty newName
// keeps the current name.
func (s *categoryService) UpdateCategory(ctx context.Context, name, newName, newDescription string) (*domain.Category, error) {
	category, err := s.findByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if newName = strings.TrimSpace(newName); newName != "" {
		category.Name = newName
	}
	category.Description = newDescription

	if err := s.categories.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, wrap(ErrConflict, err)
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetAllCategories returns the forest of roots with nested children
func (s *categoryService) GetAllCategories(ctx context.Context) ([]*domain.CategoryNode, error) {
	all, err := s.GetAllCategoriesFlat(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCategoryTree(all).Forest(), nil
}

func (s *categoryService) GetAllCategoriesFlat(ctx context.Context) ([]*domain.Category, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return all, nil
}

func (s *categoryService) SearchCategories(ctx context.Context, keyword string) ([]*domain.Category, error) {
	found, err := s.categories.Search(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, fmt.Errorf("failed to search categories: %w", err)
	}
	return found, nil
}

// Connect links an item to a category. Linking twice is a no-op.
func (s *categoryService) Connect(ctx context.Context, itemID int64, categoryName string) error {
	if _, err := s.findItem(ctx, itemID); err != nil {
		return err
	}
	category, err := s.findByName(ctx, categoryName)
	if err != nil {
		return err
	}
	if err := s.categories.Connect(ctx, category.ID, itemID); err != nil {
		return fmt.Errorf("failed to connect item: %w", err)
	}
	return nil
}

func (s *categoryService) Disconnect(ctx context.Context, itemID int64, categoryName string) error {
	category, err := s.findByName(ctx, categoryName)
	if err != nil {
		return err
	}
	if err := s.categories.Disconnect(ctx, category.ID, itemID); err != nil {
		if errors.Is(err, repository.ErrCategoryItemNotFound) {
			return wrap(ErrNotFound, err)
		}
		return fmt.Errorf("failed to disconnect item: %w", err)
	}
	return nil
}

func (s *categoryService) GetCategoriesByItem(ctx context.Context, itemID int64) ([]*domain.Category, error) {
	if _, err := s.findItem(ctx, itemID); err != nil {
		return nil, err
	}
	categories, err := s.categories.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) findItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return item, nil
}
