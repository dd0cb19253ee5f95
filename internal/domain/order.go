package domain

import "time"

type OrderStatus string

const (
	OrderStatusReady    OrderStatus = "ORDER_READY"
	OrderStatusComplete OrderStatus = "ORDER_COMPLETE"
	OrderStatusCanceled OrderStatus = "ORDER_CANCELED"
)

type DeliveryStatus string

const (
	DeliveryStatusReady    DeliveryStatus = "DELIVERY_READY"
	DeliveryStatusComplete DeliveryStatus = "DELIVERY_COMPLETE"
)

// UnknownItemName labels order lines whose item no longer exists.
const UnknownItemName = "Unknown Item"

// Order owns its lines and exactly one delivery.
type Order struct {
	ID         int64        `json:"id" db:"id"`
	MemberID   int64        `json:"member_id" db:"member_id"`
	TotalPrice int64        `json:"total_price" db:"total_price"`
	OrderDate  time.Time    `json:"order_date" db:"order_date"`
	Status     OrderStatus  `json:"status" db:"status"`
	Items      []*OrderItem `json:"order_items"`
	Delivery   *Delivery    `json:"delivery"`
}

// OrderItem is an immutable order line. ItemID is nil once the item has
// been deleted from the catalog.
type OrderItem struct {
	ID         int64  `json:"id" db:"id"`
	OrderID    int64  `json:"order_id" db:"order_id"`
	ItemID     *int64 `json:"item_id" db:"item_id"`
	ItemName   string `json:"item_name"`
	Count      int    `json:"count" db:"count"`
	OrderPrice int64  `json:"order_price" db:"order_price"`
}

// Delivery copies the shipping address from the order request.
type Delivery struct {
	ID      int64          `json:"id" db:"id"`
	OrderID int64          `json:"order_id" db:"order_id"`
	Zip     string         `json:"zip" db:"zip"`
	Addr1   string         `json:"addr1" db:"addr1"`
	Addr2   string         `json:"addr2" db:"addr2"`
	Status  DeliveryStatus `json:"status" db:"status"`
}

// OrderLine is one requested (item, count) pair.
type OrderLine struct {
	ItemID int64 `json:"item_id"`
	Count  int   `json:"count"`
}

// NewOrder builds an order shell in ORDER_READY with a zero total.
func NewOrder(memberID int64, delivery *Delivery, now time.Time) *Order {
	return &Order{
		MemberID:  memberID,
		OrderDate: now,
		Status:    OrderStatusReady,
		Delivery:  delivery,
		Items:     []*OrderItem{},
	}
}

// AddLine appends an order line and accumulates the total.
func (o *Order) AddLine(item *Item, count int) *OrderItem {
	id := item.ID
	line := &OrderItem{
		ItemID:     &id,
		ItemName:   item.Name,
		Count:      count,
		OrderPrice: item.Price,
	}
	o.Items = append(o.Items, line)
	o.TotalPrice += int64(count) * item.Price
	return line
}
