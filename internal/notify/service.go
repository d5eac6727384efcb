package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	kafkax "github.com/ariefcatur/nexus-inventory/internal/kafka"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"time"
)

const (
	TypeInfo    = "info"
	TypeWarning = "warning"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (Notification, error)
}

// Deduper claims an event id so a redelivered message is processed once.
type Deduper interface {
	Claim(ctx context.Context, service, id string) (bool, error)
	Release(ctx context.Context, service, id string) error
}

type Service struct {
	Store       Store
	Dedup       Deduper // optional
	ServiceName string
}

// HandleMessage is installed as the consumer handler.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and let the offset move on
		log.WithError(err).WithField("topic", m.Topic).Warn("drop undecodable message")
		return nil
	}
	return s.HandleEnvelope(ctx, env)
}

func (s *Service) HandleEnvelope(ctx context.Context, env orders.Envelope) error {
	n, err := notificationFor(env)
	if err != nil {
		return err
	}
	if n == nil {
		return nil // ignore
	}

	if s.Dedup != nil {
		first, err := s.Dedup.Claim(ctx, s.ServiceName, env.EventID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	if err := s.Store.CreateNotification(ctx, n); err != nil {
		if s.Dedup != nil {
			_ = s.Dedup.Release(ctx, s.ServiceName, env.EventID)
		}
		return err
	}
	log.WithFields(log.Fields{
		"event_id":        env.EventID,
		"event_type":      env.EventType,
		"notification_id": n.ID,
	}).Info("notification created")
	return nil
}

func notificationFor(env orders.Envelope) (*Notification, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.EventType, err)
		}
		return &Notification{
			Title: "New Order",
			Message: fmt.Sprintf("Order %s for %s: %d item(s), total %s.",
				p.OrderID, p.CustomerName, len(p.Items), p.TotalPrice.StringFixed(2)),
			Type:      TypeInfo,
			CreatedAt: env.OccurredAt,
		}, nil
	case orders.EventStockLow:
		p, err := kafkax.UnwrapPayload[orders.StockLowPayload](env.Payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env.EventType, err)
		}
		return &Notification{
			Title: "Low Stock Alert",
			Message: fmt.Sprintf("%s is below threshold (%d left, threshold %d).",
				p.Name, p.StockLevel, p.Threshold),
			Type:      TypeWarning,
			CreatedAt: env.OccurredAt,
		}, nil
	}
	return nil, nil
}
