package transport

import (
	"net/http"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

// HierarchyRequest names the two categories of a parent/child link
type HierarchyRequest struct {
	Parent string `json:"parent" validate:"required"`
	Child  string `json:"child" validate:"required"`
}

// ConnectRequest names an item and the category it joins or leaves
type ConnectRequest struct {
	ItemID       int64  `json:"item_id" validate:"required,gt=0"`
	CategoryName string `json:"category_name" validate:"required"`
}

// UpdateCategoryRequest renames a category and replaces its description.
// An empty new_name keeps the current name.
type UpdateCategoryRequest struct {
	Name           string `json:"name" validate:"required"`
	NewName        string `json:"new_name" validate:"max=50"`
	NewDescription string `json:"new_description" validate:"max=255"`
}

// CategoryHandler handles HTTP requests for the category hierarchy
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/category", func(r chi.Router) {
		r.Get("/show/all", h.GetAllCategories)
		r.Get("/show/all/flat", h.GetAllCategoriesFlat)
		r.Get("/show/{id}", h.GetCategory)
		r.Get("/search", h.SearchCategories)
		r.Get("/item/{item_id}", h.GetCategoriesByItem)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/create", h.CreateCategory)
			r.Patch("/add_child", h.AddChild)
			r.Patch("/add_parent", h.AddParent)
			r.Patch("/connect", h.Connect)
			r.Patch("/disconnect", h.Disconnect)
			r.Patch("/update", h.UpdateCategory)
			r.Delete("/delete/{name}", h.RemoveCategory)
		})
	})
}

// CreateCategory creates a root category
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create category")
		return
	}

	h.logger.Info("Category created", zap.Int64("category_id", category.ID), zap.String("name", category.Name))
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// AddChild makes child a direct child of parent and returns the parent
func (h *CategoryHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	var req HierarchyRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	parent, err := h.categoryService.AddChild(r.Context(), req.Parent, req.Child)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to add child category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, parent)
}

// AddParent makes parent the parent of child and returns the child
func (h *CategoryHandler) AddParent(w http.ResponseWriter, r *http.Request) {
	var req HierarchyRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	child, err := h.categoryService.AddParent(r.Context(), req.Child, req.Parent)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to add parent category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, child)
}

// Connect links an item to a category
func (h *CategoryHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if err := h.categoryService.Connect(r.Context(), req.ItemID, req.CategoryName); err != nil {
		respondServiceError(w, h.logger, err, "failed to connect item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "connected"})
}

// Disconnect removes the link between an item and a category
func (h *CategoryHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if err := h.categoryService.Disconnect(r.Context(), req.ItemID, req.CategoryName); err != nil {
		respondServiceError(w, h.logger, err, "failed to disconnect item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "disconnected"})
}

// UpdateCategory renames a category and replaces its description
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req UpdateCategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.categoryService.UpdateCategory(r.Context(), req.Name, req.NewName, req.NewDescription)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// RemoveCategory deletes a category by name
func (h *CategoryHandler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid name")
		return
	}

	if err := h.categoryService.RemoveCategory(r.Context(), name); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete category")
		return
	}

	h.logger.Info("Category deleted", zap.String("name", name))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "deleted"})
}

// GetCategory returns a single category
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// GetAllCategories returns the category forest
func (h *CategoryHandler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	forest, err := h.categoryService.GetAllCategories(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list categories")
		return
	}
	if forest == nil {
		forest = []*domain.CategoryNode{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, forest)
}

// GetAllCategoriesFlat returns every category without nesting
func (h *CategoryHandler) GetAllCategoriesFlat(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.GetAllCategoriesFlat(r.Context())
	h.respondCategories(w, categories, err)
}

// SearchCategories finds categories whose name contains ?keyword=
func (h *CategoryHandler) SearchCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.SearchCategories(r.Context(), r.URL.Query().Get("keyword"))
	h.respondCategories(w, categories, err)
}

// GetCategoriesByItem returns the categories an item is connected to
func (h *CategoryHandler) GetCategoriesByItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	categories, err := h.categoryService.GetCategoriesByItem(r.Context(), itemID)
	h.respondCategories(w, categories, err)
}

func (h *CategoryHandler) respondCategories(w http.ResponseWriter, categories []*domain.Category, err error) {
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}
