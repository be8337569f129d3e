package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a single line within an order. UnitPrice is the product
// price captured at purchase time, decoupled from later price changes.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36)"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
}

// Order is the immutable result of a checkout. Total equals the sum of
// UnitPrice times Quantity over Items at creation time and is never
// recomputed. UserID is nullable so orders survive user deletion.
type Order struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    *string         `json:"user_id,omitempty" gorm:"index;type:varchar(36)"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`
	Paid      bool            `json:"paid"`
	CreatedAt time.Time       `json:"created_at"`
}
