package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type Product struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"`
	StockLevel        int             `json:"stockLevel"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LowStock reports whether the product is at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.StockLevel <= p.LowStockThreshold
}

type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Status       Status          `json:"status"` // lihat status.go
	CreatedAt    time.Time       `json:"createdAt"`
	Items        []OrderItem     `json:"items"`
}

// OrderItem carries the product price captured when the order was placed.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Stats struct {
	Orders        int64 `json:"orders"`
	Products      int64 `json:"products"`
	Notifications int64 `json:"notifications"`
	Operations    int64 `json:"operations"`
}
