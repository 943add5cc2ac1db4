package domain

import "time"

// OrderStatus is the settlement state of an order
type OrderStatus string

const (
	OrderStatusUnpaid OrderStatus = "unpaid"
	OrderStatusPaid   OrderStatus = "paid"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	return s == OrderStatusUnpaid || s == OrderStatusPaid
}

// Order groups the lines converted from one cart. Unpaid orders reserve
// nothing; stock is deducted when the order is settled.
type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Status    OrderStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedBy int64       `gorm:"index" json:"created_by,string"`
	PaidAt    *time.Time  `json:"paid_at"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// IsPaid reports whether the order has been settled
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// OrderItem is one product line of an order. The quantity is fixed when the
// order is created.
type OrderItem struct {
	ID        int64    `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OrderID   int64    `gorm:"not null;index" json:"order_id,string"`
	ProductID int64    `gorm:"not null;index" json:"product_id,string"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	Product   *Product `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_item"
}
