package orders

import "context"

// Tx is the set of reads and writes available inside one unit of work.
type Tx interface {
	// FindProductForUpdate returns the product and holds it against
	// concurrent writers until the transaction ends. found is false when no
	// row matches id.
	FindProductForUpdate(ctx context.Context, id string) (p Product, found bool, err error)
	UpdateStock(ctx context.Context, productID string, newLevel int) error
	InsertOrder(ctx context.Context, o *Order) error
}

// UnitOfWork runs fn atomically: every write made through tx commits when fn
// returns nil, and none of them is visible when fn returns an error or ctx is
// done first.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type OrderReader interface {
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
}

type CatalogReader interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

type StatsReader interface {
	Stats(ctx context.Context) (Stats, error)
}

// EventSink receives domain events after the transaction that produced them
// has committed.
type EventSink interface {
	Emit(ctx context.Context, topic string, key []byte, env Envelope) error
}
