package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-api/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByMember(ctx context.Context, memberID int64) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create persists an order with its lines and delivery. Callers run it
// inside a transaction so a failure leaves nothing behind.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := conn(ctx, r.db)

	err := q.QueryRowContext(
		ctx,
		`INSERT INTO orders (member_id, total_price, order_date, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		order.MemberID,
		order.TotalPrice,
		order.OrderDate,
		string(order.Status),
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, line := range order.Items {
		line.OrderID = order.ID
		err := q.QueryRowContext(
			ctx,
			`INSERT INTO order_items (order_id, item_id, count, order_price) VALUES ($1, $2, $3, $4) RETURNING id`,
			line.OrderID,
			line.ItemID,
			line.Count,
			line.OrderPrice,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if order.Delivery != nil {
		d := order.Delivery
		d.OrderID = order.ID
		err := q.QueryRowContext(
			ctx,
			`INSERT INTO deliveries (order_id, zip, addr1, addr2, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			d.OrderID,
			d.Zip,
			d.Addr1,
			d.Addr2,
			string(d.Status),
		).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("failed to create delivery: %w", err)
		}
	}

	return nil
}

const orderSelect = `
	SELECT o.id, o.member_id, o.total_price, o.order_date, o.status,
	       d.id, d.zip, d.addr1, d.addr2, d.status
	FROM orders o
	LEFT JOIN deliveries d ON d.order_id = o.id
`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{Items: []*domain.OrderItem{}}
	var (
		deliveryID                     sql.NullInt64
		zip, addr1, addr2, deliverySts sql.NullString
	)
	if err := row.Scan(
		&order.ID,
		&order.MemberID,
		&order.TotalPrice,
		&order.OrderDate,
		&order.Status,
		&deliveryID,
		&zip,
		&addr1,
		&addr2,
		&deliverySts,
	); err != nil {
		return nil, err
	}

	if deliveryID.Valid {
		order.Delivery = &domain.Delivery{
			ID:      deliveryID.Int64,
			OrderID: order.ID,
			Zip:     zip.String,
			Addr1:   addr1.String,
			Addr2:   addr2.String,
			Status:  domain.DeliveryStatus(deliverySts.String),
		}
	}
	return order, nil
}

// FindByID retrieves an order with its lines and delivery
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := scanOrder(conn(ctx, r.db).QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachLines(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByMember retrieves a member's orders, oldest first
func (r *orderRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, orderSelect+` WHERE o.member_id = $1 ORDER BY o.id ASC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines loads the lines of every order in one query. Lines whose
// item has been deleted are labelled with domain.UnknownItemName.
func (r *orderRepository) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `
		SELECT oi.id, oi.order_id, oi.item_id, COALESCE(i.name, $2), oi.count, oi.order_price
		FROM order_items oi
		LEFT JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id ASC, oi.id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, ids, domain.UnknownItemName)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := &domain.OrderItem{}
		var itemID sql.NullInt64
		if err := rows.Scan(&line.ID, &line.OrderID, &itemID, &line.ItemName, &line.Count, &line.OrderPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if itemID.Valid {
			line.ItemID = &itemID.Int64
		}
		if o, ok := byID[line.OrderID]; ok {
			o.Items = append(o.Items, line)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}
