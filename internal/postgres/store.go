package postgres

import (
	"context"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Store is the PostgreSQL implementation of the order, catalog and
// notification ports. Money columns travel as text to keep exact decimals.
type Store struct{ DB *pgxpool.Pool }

// InTx runs fn in a READ COMMITTED transaction. Products are locked with
// SELECT ... FOR UPDATE, so concurrent orders on the same row serialize.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	// rollback even when ctx is already cancelled
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}

type pgTx struct{ tx pgx.Tx }

const productColumns = `id, sku, name, description, price::text, stock_level, low_stock_threshold, created_at, updated_at`

func (t *pgTx) FindProductForUpdate(ctx context.Context, id string) (orders.Product, bool, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, false, nil
	}
	if err != nil {
		return orders.Product{}, false, errors.Wrapf(err, "lock product %s", id)
	}
	return p, true, nil
}

func (t *pgTx) UpdateStock(ctx context.Context, productID string, newLevel int) error {
	if newLevel < 0 {
		return orders.ErrStockConflict
	}
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock_level=$2, updated_at=now() WHERE id=$1`, productID, newLevel)
	if err != nil {
		return errors.Wrapf(err, "update stock %s", productID)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrStockConflict
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, customer_name, total_price, status, created_at)
		VALUES ($1, $2, $3::text::numeric, $4, $5)
	`, o.ID, o.CustomerName, o.TotalPrice.String(), string(o.Status), o.CreatedAt); err != nil {
		return errors.Wrap(err, "insert order")
	}

	for i, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, position, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6::text::numeric)`,
			it.ID, o.ID, it.ProductID, i, it.Quantity, it.UnitPrice.String(),
		); err != nil {
			return errors.Wrapf(err, "insert order item %d", i)
		}
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, customer_name, total_price::text, status, created_at
	                              FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (orders.Order, error) { return scanOrder(r) })
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(out) == 0 {
		return []orders.Order{}, nil
	}

	ids := make([]string, len(out))
	byID := make(map[string]*orders.Order, len(out))
	for i := range out {
		ids[i] = out[i].ID
		byID[out[i].ID] = &out[i]
	}
	items, err := s.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT id, customer_name, total_price::text, status, created_at
	                           FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, errors.Wrap(err, "get order")
	}
	if o.Items, err = s.itemsFor(ctx, []string{id}); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func (s *Store) itemsFor(ctx context.Context, orderIDs []string) ([]orders.OrderItem, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price::text
	                              FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	items, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (orders.OrderItem, error) {
		var (
			it    orders.OrderItem
			price string
		)
		if err := r.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return it, err
		}
		unit, err := decimal.NewFromString(price)
		it.UnitPrice = unit
		return it, err
	})
	return items, errors.Wrap(err, "scan order items")
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, sku`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (orders.Product, error) { return scanProduct(r) })
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: id}
	}
	return p, errors.Wrap(err, "get product")
}

// UpsertProduct inserts p or updates the row with the same SKU.
func (s *Store) UpsertProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := s.DB.QueryRow(ctx, `
		INSERT INTO products(id, sku, name, description, price, stock_level, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock_level = EXCLUDED.stock_level,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = now()
		RETURNING `+productColumns,
		p.ID, p.SKU, p.Name, p.Description, p.Price.String(), p.StockLevel, p.LowStockThreshold)
	out, err := scanProduct(row)
	return out, errors.Wrapf(err, "upsert product %s", p.SKU)
}

func (s *Store) Stats(ctx context.Context) (orders.Stats, error) {
	var st orders.Stats
	err := s.DB.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM orders),
		(SELECT count(*) FROM products),
		(SELECT count(*) FROM notifications)`).Scan(&st.Orders, &st.Products, &st.Notifications)
	if err != nil {
		return orders.Stats{}, errors.Wrap(err, "stats")
	}
	st.Operations = st.Orders + st.Products + st.Notifications
	return st, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *notify.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO notifications(id, title, message, type, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		RETURNING created_at`,
		n.ID, n.Title, n.Message, n.Type, nullTime(n),
	).Scan(&n.CreatedAt)
	return errors.Wrap(err, "insert notification")
}

func (s *Store) ListNotifications(ctx context.Context) ([]notify.Notification, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, title, message, type, is_read, created_at
	                              FROM notifications ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (notify.Notification, error) { return scanNotification(r) })
	return out, errors.Wrap(err, "scan notifications")
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (notify.Notification, error) {
	row := s.DB.QueryRow(ctx, `UPDATE notifications SET is_read = true WHERE id=$1
	                           RETURNING id, title, message, type, is_read, created_at`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return notify.Notification{}, notify.ErrNotFound
	}
	return n, errors.Wrap(err, "mark notification read")
}

func scanProduct(row pgx.Row) (orders.Product, error) {
	var (
		p     orders.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &price,
		&p.StockLevel, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	var err error
	p.Price, err = decimal.NewFromString(price)
	return p, err
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o             orders.Order
		total, status string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &total, &status, &o.CreatedAt); err != nil {
		return o, err
	}
	var err error
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return o, err
	}
	o.Status, err = orders.ParseStatus(status)
	return o, err
}

func scanNotification(row pgx.Row) (notify.Notification, error) {
	var n notify.Notification
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
	return n, err
}

func nullTime(n *notify.Notification) any {
	if n.CreatedAt.IsZero() {
		return nil
	}
	return n.CreatedAt
}
