package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrder struct {
	CustomerName string      `json:"customerName"`
	Items        []ItemInput `json:"items"`
}

// Validate checks the request shape only; stock and existence are checked
// inside the transaction.
func (r PlaceOrder) Validate() error {
	var problems []string
	if strings.TrimSpace(r.CustomerName) == "" {
		problems = append(problems, "customerName is required")
	}
	if len(r.Items) == 0 {
		problems = append(problems, "items must not be empty")
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].productId is required", i))
		}
		if it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
	}
	if len(problems) > 0 {
		return &InvalidInputError{Problems: problems}
	}
	return nil
}

// Service places orders against the catalog.
type Service struct {
	UoW    UnitOfWork
	Reader OrderReader
	Events EventSink // optional
	Name   string    // producer name on emitted events

	Now   func() time.Time
	NewID func() string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// CreateOrder validates req and, in one transaction, checks and deducts stock
// for every item in request order before inserting the order. A product listed
// twice is checked and deducted twice against its running stock level.
func (s *Service) CreateOrder(ctx context.Context, req PlaceOrder) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		order *Order
		low   []Product
	)
	err := s.UoW.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o := &Order{
			ID:           s.newID(),
			CustomerName: strings.TrimSpace(req.CustomerName),
			Status:       StatusPending,
			Items:        make([]OrderItem, 0, len(req.Items)),
		}
		total := decimal.Zero
		lowAt := map[string]int{}
		var lowList []Product

		for _, it := range req.Items {
			p, found, err := tx.FindProductForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if !found {
				return &ProductNotFoundError{ProductID: it.ProductID}
			}
			if p.StockLevel < it.Quantity {
				return &InsufficientStockError{ProductID: p.ID, Requested: it.Quantity, Available: p.StockLevel}
			}

			p.StockLevel -= it.Quantity
			if err := tx.UpdateStock(ctx, p.ID, p.StockLevel); err != nil {
				return err
			}

			item := OrderItem{
				ID:        s.newID(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			}
			total = total.Add(item.LineTotal())
			o.Items = append(o.Items, item)

			// keep only the final level per product
			if i, seen := lowAt[p.ID]; seen {
				lowList[i] = p
			} else if p.LowStock() {
				lowAt[p.ID] = len(lowList)
				lowList = append(lowList, p)
			}
		}

		o.TotalPrice = total
		o.CreatedAt = s.now()
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		order, low = o, lowList
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	log.WithFields(log.Fields{
		"order_id": order.ID,
		"items":    len(order.Items),
		"total":    order.TotalPrice.String(),
	}).Info("order placed")

	s.emit(ctx, order, low)
	return order, nil
}

// classify keeps domain errors as they are and folds everything else into a
// retryable TransactionError.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrTransaction):
		return err
	}
	return &TransactionError{Err: err}
}

func (s *Service) emit(ctx context.Context, o *Order, low []Product) {
	if s.Events == nil {
		return
	}
	trace := TraceID(ctx)
	publish := func(topic, key string, env Envelope, err error) {
		if err == nil {
			env.TraceID = trace
			err = s.Events.Emit(ctx, topic, PartitionKey(key), env)
		}
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"topic": topic, "order_id": o.ID}).Warn("emit event")
		}
	}

	env, err := NewEnvelope(EventOrderCreated, s.Name, o.ID, o.CreatedAt, orderCreatedPayload(o))
	publish(TopicOrderCreated, o.ID, env, err)

	for _, p := range low {
		env, err := NewEnvelope(EventStockLow, s.Name, p.ID, o.CreatedAt, StockLowPayload{
			ProductID:  p.ID,
			SKU:        p.SKU,
			Name:       p.Name,
			StockLevel: p.StockLevel,
			Threshold:  p.LowStockThreshold,
			OrderID:    o.ID,
		})
		publish(TopicStockLow, p.ID, env, err)
	}
}

// ListOrders returns every order with its items, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.Reader.ListOrders(ctx)
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.Reader.GetOrder(ctx, id)
}

type traceKey struct{}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
