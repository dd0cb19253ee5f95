package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"go.uber.org/zap"
)

// CreateOrderInput is an order request from a member
type CreateOrderInput struct {
	MemberID int64
	Zip      string
	Addr1    string
	Addr2    string
	Lines    []domain.OrderLine
}

// OrderService places and reads orders
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	GetOrdersByMemberID(ctx context.Context, memberID int64) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

type orderService struct {
	orders  repository.OrderRepository
	items   repository.ItemRepository
	members repository.MemberRepository
	tx      repository.Transactor
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	items repository.ItemRepository,
	members repository.MemberRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:  orders,
		items:   items,
		members: members,
		tx:      tx,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateOrder validates every line before touching stock, then decrements
// stock line by line and persists the order. Any failure rolls the whole
// order back.
func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	var order *domain.Order

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.members.FindByID(ctx, in.MemberID); err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return wrap(ErrNotFound, err)
			}
			return fmt.Errorf("failed to find member: %w", err)
		}

		requested, err := aggregateLines(in.Lines)
		if err != nil {
			return err
		}

		items, err := s.lockAndCheck(ctx, requested)
		if err != nil {
			return err
		}

		delivery := &domain.Delivery{
			Zip:    in.Zip,
			Addr1:  in.Addr1,
			Addr2:  in.Addr2,
			Status: domain.DeliveryStatusReady,
		}
		order = domain.NewOrder(in.MemberID, delivery, s.now())

		for _, line := range in.Lines {
			if err := s.items.DecrementStock(ctx, line.ItemID, line.Count); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return wrap(ErrInsufficientStock, fmt.Errorf("item %d: %w", line.ItemID, err))
				}
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			order.AddLine(items[line.ItemID], line.Count)
		}

		if err := s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Order rejected", zap.Int64("member_id", in.MemberID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("member_id", order.MemberID),
		zap.Int64("total_price", order.TotalPrice),
		zap.Int("lines", len(order.Items)),
	)
	return order, nil
}

// aggregateLines sums the requested count per item
func aggregateLines(lines []domain.OrderLine) (map[int64]int, error) {
	if len(lines) == 0 {
		return nil, invalid("an order needs at least one line")
	}
	requested := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.Count <= 0 {
			return nil, invalid("count for item %d must be positive", line.ItemID)
		}
		requested[line.ItemID] += line.Count
	}
	return requested, nil
}

// lockAndCheck locks the requested item rows in ascending id order and
// verifies that each has enough stock for the aggregated request
func (s *orderService) lockAndCheck(ctx context.Context, requested map[int64]int) (map[int64]*domain.Item, error) {
	ids := make([]int64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make(map[int64]*domain.Item, len(ids))
	for _, id := range ids {
		item, err := s.items.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrItemNotFound) {
				return nil, wrap(ErrNotFound, fmt.Errorf("item %d: %w", id, err))
			}
			return nil, fmt.Errorf("failed to load item: %w", err)
		}
		if item.Stock < requested[id] {
			return nil, wrap(ErrInsufficientStock,
				fmt.Errorf("item %d: requested %d, available %d", id, requested[id], item.Stock))
		}
		items[id] = item
	}
	return items, nil
}

func (s *orderService) GetOrdersByMemberID(ctx context.Context, memberID int64) ([]*domain.Order, error) {
	if _, err := s.members.FindByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	orders, err := s.orders.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}
