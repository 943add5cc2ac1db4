package domain

import (
	"math"
	"time"
)

// MaxQuantity bounds the on-hand quantity of a product
const MaxQuantity = math.MaxInt32

// Product is a stock keeping unit identified by its article code
type Product struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Article   string    `gorm:"size:50;not null;uniqueIndex" json:"article"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"` // on-hand quantity, never negative
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}
