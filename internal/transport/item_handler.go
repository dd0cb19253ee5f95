package transport

import (
	"bytes"
	"net/http"
	"strconv"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type itemFields struct {
	Name  string `json:"name" validate:"required,max=100"`
	Price int64  `json:"price" validate:"gte=0"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// CreateBookRequest represents the book creation payload
type CreateBookRequest struct {
	itemFields
	Author string `json:"author" validate:"required,max=100"`
	ISBN   int64  `json:"isbn" validate:"required,gt=0"`
}

// CreateAlbumRequest represents the album creation payload
type CreateAlbumRequest struct {
	itemFields
	Artist string `json:"artist" validate:"required,max=100"`
	Etc    string `json:"etc" validate:"max=255"`
}

// CreateMovieRequest represents the movie creation payload
type CreateMovieRequest struct {
	itemFields
	Director string `json:"director" validate:"required,max=50"`
	Actor    string `json:"actor" validate:"required,max=50"`
}

// UpdateItemRequest is a partial update of the shared item fields
type UpdateItemRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Price *int64  `json:"price" validate:"omitempty,gte=0"`
	Stock *int    `json:"stock" validate:"omitempty,gte=0"`
}

// UploadResponse carries the public URL of an uploaded image
type UploadResponse struct {
	URL string `json:"url"`
}

// ItemHandler handles HTTP requests for the item catalog
type ItemHandler struct {
	itemService service.ItemService
	logger      *zap.Logger
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemService service.ItemService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		logger:      logger,
	}
}

// RegisterRoutes registers all item routes
func (h *ItemHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/item", func(r chi.Router) {
		r.Get("/show/all", h.ListItems)
		r.Get("/show/{id}", h.GetItem)
		r.Get("/category/{category_id}", h.GetItemsByCategory)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/create/book", h.CreateBook)
			r.Post("/create/album", h.CreateAlbum)
			r.Post("/create/movie", h.CreateMovie)
			r.Patch("/update/{id}", h.UpdateItem)
			r.Delete("/delete/{id}", h.DeleteItem)
			r.Post("/upload", h.UploadImage)
			r.Get("/export", h.ExportItems)
		})
	})
}

// CreateBook handles book creation
func (h *ItemHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.itemService.CreateBook(r.Context(), req.Name, req.Price, req.Stock, req.Author, req.ISBN)
	h.respondCreated(w, item, err)
}

// CreateAlbum handles album creation
func (h *ItemHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req CreateAlbumRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.itemService.CreateAlbum(r.Context(), req.Name, req.Price, req.Stock, req.Artist, req.Etc)
	h.respondCreated(w, item, err)
}

// CreateMovie handles movie creation
func (h *ItemHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	var req CreateMovieRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.itemService.CreateMovie(r.Context(), req.Name, req.Price, req.Stock, req.Director, req.Actor)
	h.respondCreated(w, item, err)
}

func (h *ItemHandler) respondCreated(w http.ResponseWriter, item *domain.Item, err error) {
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create item")
		return
	}

	h.logger.Info("Item created", zap.Int64("item_id", item.ID), zap.String("type", string(item.Type)))
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// ListItems returns every item, optionally with its categories
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	withCategories, _ := strconv.ParseBool(r.URL.Query().Get("with_categories"))

	if withCategories {
		items, err := h.itemService.ListItemsWithCategories(r.Context())
		if err != nil {
			respondServiceError(w, h.logger, err, "failed to list items")
			return
		}

		if items == nil {
			items = []*domain.ItemWithCategories{}
		}
		middleware.RespondWithJSON(w, http.StatusOK, items)
		return
	}

	items, err := h.itemService.ListItems(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list items")
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// GetItem returns a single item
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.itemService.GetItem(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// UpdateItem applies a partial update to an item
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.itemService.UpdateItem(r.Context(), id, service.ItemUpdate{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item and returns the deleted record
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.itemService.DeleteItem(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to delete item")
		return
	}

	h.logger.Info("Item deleted", zap.Int64("item_id", item.ID))
	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// GetItemsByCategory returns the items of a category and its descendants,
// optionally filtered by ?type=
func (h *ItemHandler) GetItemsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "category_id")
	if !ok {
		return
	}

	var itemType *domain.ItemType
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := domain.ParseItemType(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		itemType = &parsed
	}

	items, err := h.itemService.GetItemsByCategory(r.Context(), categoryID, itemType)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list items by category")
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// UploadImage stores the multipart "file" field and returns its public URL
func (h *ItemHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Debug("Upload without file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	url, err := h.itemService.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to upload image")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, UploadResponse{URL: url})
}

// ExportItems streams the catalog as an xlsx workbook
func (h *ItemHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.itemService.ExportItems(r.Context(), &buf); err != nil {
		respondServiceError(w, h.logger, err, "failed to export items")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="items.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write export", zap.Error(err))
	}
}
