package postgres

import (
	"context"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/shopspring/decimal"
)

// SeedProducts is the starter catalog loaded by `nexusctl seed`.
var SeedProducts = []orders.Product{
	{SKU: "LTP-001", Name: "Elite Laptop Pro", Description: "High performance laptop",
		Price: decimal.RequireFromString("1499.99"), StockLevel: 45, LowStockThreshold: 10},
	{SKU: "MON-001", Name: `UltraWide Monitor 34"`, Description: "Curved 4K display",
		Price: decimal.RequireFromString("599.99"), StockLevel: 12, LowStockThreshold: 5},
	{SKU: "KBD-001", Name: "Mechanical Keyboard RGB", Description: "Tactile typing experience",
		Price: decimal.RequireFromString("129.99"), StockLevel: 85, LowStockThreshold: 20},
	{SKU: "MSE-001", Name: "Wireless Pro Mouse", Description: "Precision gaming mouse",
		Price: decimal.RequireFromString("79.99"), StockLevel: 3, LowStockThreshold: 10},
}

type ProductUpserter interface {
	UpsertProduct(ctx context.Context, p orders.Product) (orders.Product, error)
}

// Seed upserts SeedProducts by SKU and returns the stored rows.
func Seed(ctx context.Context, store ProductUpserter) ([]orders.Product, error) {
	out := make([]orders.Product, 0, len(SeedProducts))
	for _, p := range SeedProducts {
		saved, err := store.UpsertProduct(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}
