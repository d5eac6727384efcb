package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/ariefcatur/nexus-inventory/internal/postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newStore connects to POSTGRES_TEST_DSN, migrates, and empties every table.
// The tests share one database and must not run in parallel.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL store tests")
	}
	require.NoError(t, postgres.MigrateUp(dsn))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.Connect(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `TRUNCATE order_items, orders, notifications, products CASCADE`)
	require.NoError(t, err)
	return &postgres.Store{DB: db}
}

func upsert(t *testing.T, st *postgres.Store, sku, price string, stock, threshold int) orders.Product {
	t.Helper()
	p, err := st.UpsertProduct(context.Background(), orders.Product{
		SKU:               sku,
		Name:              "Product " + sku,
		Price:             decimal.RequireFromString(price),
		StockLevel:        stock,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return p
}

func stock(t *testing.T, st *postgres.Store, id string) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockLevel
}

func count(t *testing.T, st *postgres.Store) int64 {
	t.Helper()
	s, err := st.Stats(context.Background())
	require.NoError(t, err)
	return s.Orders
}

func line(id string, qty int) orders.ItemInput { return orders.ItemInput{ProductID: id, Quantity: qty} }

func TestStore_PlacesOrder(t *testing.T) {
	st := newStore(t)
	laptop := upsert(t, st, "LTP-001", "1499.99", 10, 2)
	mouse := upsert(t, st, "MSE-001", "79.99", 20, 2)
	svc := &orders.Service{UoW: st, Reader: st}

	o, err := svc.CreateOrder(context.Background(), orders.PlaceOrder{
		CustomerName: "Ada",
		Items:        []orders.ItemInput{line(mouse.ID, 2), line(laptop.ID, 3), line(mouse.ID, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, stock(t, st, laptop.ID))
	assert.Equal(t, 17, stock(t, st, mouse.ID))

	got, err := st.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.Equal(t, "4739.94", got.TotalPrice.StringFixed(2))
	require.Len(t, got.Items, 3)
	// items come back in request order
	assert.Equal(t, []string{mouse.ID, laptop.ID, mouse.ID},
		[]string{got.Items[0].ProductID, got.Items[1].ProductID, got.Items[2].ProductID})
	assert.Equal(t, []int{2, 3, 1}, []int{got.Items[0].Quantity, got.Items[1].Quantity, got.Items[2].Quantity})
	assert.Equal(t, "1499.99", got.Items[1].UnitPrice.StringFixed(2))

	list, err := st.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 3)
}

func TestStore_FailedOrdersLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name  string
		items func(a, b orders.Product) []orders.ItemInput
		want  error
	}{
		{
			name:  "insufficient stock",
			items: func(a, _ orders.Product) []orders.ItemInput { return []orders.ItemInput{line(a.ID, 5)} },
			want:  orders.ErrInsufficientStock,
		},
		{
			name: "unknown product after a good line",
			items: func(_, b orders.Product) []orders.ItemInput {
				return []orders.ItemInput{line(b.ID, 4), line("no-such-product", 1)}
			},
			want: orders.ErrProductNotFound,
		},
		{
			name:  "duplicate product beyond stock",
			items: func(a, _ orders.Product) []orders.ItemInput { return []orders.ItemInput{line(a.ID, 2), line(a.ID, 1)} },
			want:  orders.ErrInsufficientStock,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore(t)
			a := upsert(t, st, "A", "5.00", 2, 0)
			b := upsert(t, st, "B", "9.00", 85, 0)
			svc := &orders.Service{UoW: st, Reader: st}

			_, err := svc.CreateOrder(context.Background(), orders.PlaceOrder{CustomerName: "Ada", Items: tc.items(a, b)})

			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 2, stock(t, st, a.ID))
			assert.Equal(t, 85, stock(t, st, b.ID))
			assert.Zero(t, count(t, st))
		})
	}
}

func TestStore_DuplicateLinesSeeRunningStock(t *testing.T) {
	st := newStore(t)
	p := upsert(t, st, "MSE-001", "79.99", 3, 1)
	svc := &orders.Service{UoW: st, Reader: st}

	_, err := svc.CreateOrder(context.Background(), orders.PlaceOrder{
		CustomerName: "Ada",
		Items:        []orders.ItemInput{line(p.ID, 2), line(p.ID, 2)},
	})

	var short *orders.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 2, short.Requested)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 3, stock(t, st, p.ID))
}

func TestStore_LastUnitsGoToOneBuyer(t *testing.T) {
	const q = 5
	st := newStore(t)
	p := upsert(t, st, "A", "1.00", q, 0)
	svc := &orders.Service{UoW: st, Reader: st}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		wins  atomic.Int32
		short atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.CreateOrder(context.Background(), orders.PlaceOrder{
				CustomerName: fmt.Sprintf("buyer-%d", i),
				Items:        []orders.ItemInput{line(p.ID, q)},
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, orders.ErrInsufficientStock):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(1), short.Load())
	assert.Equal(t, 0, stock(t, st, p.ID))
	assert.EqualValues(t, 1, count(t, st))
}

func TestStore_RowLockHoldsUntilCommit(t *testing.T) {
	st := newStore(t)
	p := upsert(t, st, "A", "1.00", 10, 0)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- st.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			cur, ok, err := tx.FindProductForUpdate(ctx, p.ID)
			if err != nil || !ok {
				return fmt.Errorf("lock: found=%v err=%v", ok, err)
			}
			if err := tx.UpdateStock(ctx, p.ID, cur.StockLevel-3); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	seen := make(chan int, 1)
	second := make(chan error, 1)
	go func() {
		second <- st.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			cur, _, err := tx.FindProductForUpdate(ctx, p.ID)
			seen <- cur.StockLevel
			return err
		})
	}()

	select {
	case <-seen:
		t.Fatal("second transaction read a locked row")
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, 7, <-seen, "second transaction sees the committed level")
}

func TestStore_CancelledTransactionRollsBack(t *testing.T) {
	st := newStore(t)
	p := upsert(t, st, "A", "1.00", 10, 0)
	ctx, cancel := context.WithCancel(context.Background())

	err := st.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if err := tx.UpdateStock(ctx, p.ID, 1); err != nil {
			return err
		}
		cancel()
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 10, stock(t, st, p.ID))
}

func TestStore_UpdateStockRejectsUnknownAndNegative(t *testing.T) {
	st := newStore(t)
	p := upsert(t, st, "A", "1.00", 10, 0)

	err := st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		assert.ErrorIs(t, tx.UpdateStock(ctx, "ghost", 1), orders.ErrStockConflict)
		assert.ErrorIs(t, tx.UpdateStock(ctx, p.ID, -1), orders.ErrStockConflict)
		_, ok, err := tx.FindProductForUpdate(ctx, "ghost")
		assert.False(t, ok)
		return err
	})
	require.NoError(t, err)
}

func TestStore_ReadsAndNotifications(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	p := upsert(t, st, "A", "12.50", 4, 5)

	again := upsert(t, st, "A", "13.00", 9, 5)
	assert.Equal(t, p.ID, again.ID, "upsert keeps the id of an existing sku")

	got, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "13.00", got.Price.StringFixed(2))
	assert.Equal(t, 9, got.StockLevel)

	_, err = st.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
	_, err = st.GetOrder(ctx, "ghost")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	n := &notify.Notification{Title: "Low Stock Alert", Message: "A is low", Type: notify.TypeWarning}
	require.NoError(t, st.CreateNotification(ctx, n))
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	read, err := st.MarkNotificationRead(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	_, err = st.MarkNotificationRead(ctx, "ghost")
	assert.ErrorIs(t, err, notify.ErrNotFound)

	ns, err := st.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 1)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders.Stats{Products: 1, Notifications: 1, Operations: 2}, stats)
}
