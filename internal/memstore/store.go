// Package memstore is an in-process implementation of the order, catalog and
// notification stores. Transactions are fully serialized; it backs local runs
// with STORE_DRIVER=memory and the test suites.
package memstore

import (
	"context"
	"fmt"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/google/uuid"
	"sort"
	"sync"
	"time"
)

type Store struct {
	mu       sync.Mutex
	products map[string]orders.Product
	orders   []orders.Order
	notes    []notify.Notification
	now      func() time.Time
}

func New() *Store {
	return &Store{
		products: map[string]orders.Product{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpsertProduct inserts p or, when a product with the same SKU exists,
// replaces its fields while keeping its id. The stored product is returned.
// An id already held by another SKU is rejected.
func (s *Store) UpsertProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, cur := range s.products {
		if cur.SKU == p.SKU {
			p.ID, p.CreatedAt, p.UpdatedAt = id, cur.CreatedAt, now
			s.products[id] = p
			return p, nil
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if cur, taken := s.products[p.ID]; taken {
		return orders.Product{}, fmt.Errorf("product id %s already belongs to sku %s", p.ID, cur.SKU)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s, stock: map[string]int{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// a caller that gave up mid-flight must not see a commit
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	for id, level := range tx.stock {
		p := s.products[id]
		p.StockLevel, p.UpdatedAt = level, now
		s.products[id] = p
	}
	s.orders = append(s.orders, tx.orders...)
	return nil
}

// memTx buffers writes until InTx commits them. The store mutex is held for
// the whole transaction, so reads of s need no further locking.
type memTx struct {
	s      *Store
	stock  map[string]int
	orders []orders.Order
}

func (t *memTx) FindProductForUpdate(_ context.Context, id string) (orders.Product, bool, error) {
	p, ok := t.s.products[id]
	if !ok {
		return orders.Product{}, false, nil
	}
	if level, dirty := t.stock[id]; dirty {
		p.StockLevel = level
	}
	return p, true, nil
}

func (t *memTx) UpdateStock(_ context.Context, productID string, newLevel int) error {
	if _, ok := t.s.products[productID]; !ok || newLevel < 0 {
		return orders.ErrStockConflict
	}
	t.stock[productID] = newLevel
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	t.orders = append(t.orders, cloneOrder(*o))
	return nil
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		out = append(out, cloneOrder(s.orders[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return orders.Order{}, orders.ErrOrderNotFound
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SKU < out[j].SKU
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

func (s *Store) Stats(_ context.Context) (orders.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := orders.Stats{
		Orders:        int64(len(s.orders)),
		Products:      int64(len(s.products)),
		Notifications: int64(len(s.notes)),
	}
	st.Operations = st.Orders + st.Products + st.Notifications
	return st, nil
}

func (s *Store) CreateNotification(_ context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notes = append(s.notes, *n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context) ([]notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notify.Notification, 0, len(s.notes))
	for i := len(s.notes) - 1; i >= 0; i-- {
		out = append(out, s.notes[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) (notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes[i].IsRead = true
			return s.notes[i], nil
		}
	}
	return notify.Notification{}, notify.ErrNotFound
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o
}
