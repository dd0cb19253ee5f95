package transport

import (
	"net/http"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderLineRequest is one requested item and its count
type OrderLineRequest struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
	Count  int   `json:"count" validate:"required,gte=1"`
}

// CreateOrderRequest represents the order placement payload
type CreateOrderRequest struct {
	Zip   string             `json:"zip" validate:"max=20"`
	Addr1 string             `json:"addr1" validate:"max=100"`
	Addr2 string             `json:"addr2" validate:"max=100"`
	Items []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/order", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequireSelfOrAdmin("member_id", h.logger)).Post("/create/{member_id}", h.CreateOrder)
		r.With(middleware.RequireSelfOrAdmin("member_id", h.logger)).Get("/show/member/{member_id}", h.GetOrdersByMember)
		r.Get("/show/{id}", h.GetOrder)
	})
}

// CreateOrder places an order for the member in the path
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r, "member_id")
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.OrderLine{ItemID: item.ItemID, Count: item.Count})
	}

	order, err := h.orderService.CreateOrder(r.Context(), service.CreateOrderInput{
		MemberID: memberID,
		Zip:      req.Zip,
		Addr1:    req.Addr1,
		Addr2:    req.Addr2,
		Lines:    lines,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create order")
		return
	}

	h.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("member_id", memberID),
		zap.Int64("total_price", order.TotalPrice),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// GetOrdersByMember lists a member's orders
func (h *OrderHandler) GetOrdersByMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r, "member_id")
	if !ok {
		return
	}

	orders, err := h.orderService.GetOrdersByMemberID(r.Context(), memberID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order. Members only see their own orders.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get order")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())
	userID, _ := middleware.GetUserID(r.Context())
	if role != domain.RoleAdmin && order.MemberID != userID {
		// Indistinguishable from a missing order
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
