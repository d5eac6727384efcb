package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/ariefcatur/nexus-inventory/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 1 << 20

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (orderID string, reserved bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

type OrderCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool, error)
	Set(ctx context.Context, orderID string, body []byte) error
}

type OrdersHandler struct {
	Orders  *orders.Service
	Idem    IdempotencyStore // optional
	Cache   OrderCache       // optional
	Auth    *Authenticator   // nil disables auth
	Timeout time.Duration
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		if h.Auth != nil {
			r.Use(h.Auth.Middleware)
			r.With(RequireRole(RoleAdmin, RoleStaff)).Post("/", h.createOrder)
		} else {
			r.Post("/", h.createOrder)
		}
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
	})
}

func (h *OrdersHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	return context.WithTimeout(ctx, d)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, &orders.InvalidInputError{Problems: []string{"request body too large or unreadable"}})
		return
	}
	if err := validateBody(createOrderSchema, body); err != nil {
		writeError(w, r, err)
		return
	}
	var req orders.PlaceOrder
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, &orders.InvalidInputError{Problems: []string{"invalid json"}})
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	idemKey := r.Header.Get("Idempotency-Key")
	reserved := false
	if idemKey != "" && h.Idem != nil {
		existing, ok, err := h.Idem.Reserve(ctx, idemKey)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeJSON(w, http.StatusConflict, errorResp{Error: err.Error(), Code: "IDEMPOTENCY_IN_FLIGHT"})
			return
		case err != nil:
			// the database stays the source of truth; carry on without the shortcut
			log.WithError(err).Warn("idempotency reserve failed")
		case !ok:
			o, err := h.Orders.GetOrder(ctx, existing)
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.Header().Set("Idempotent-Replay", "true")
			writeJSON(w, http.StatusOK, o)
			return
		default:
			reserved = true
		}
	}

	order, err := h.Orders.CreateOrder(ctx, req)
	if err != nil {
		if reserved {
			if rerr := h.Idem.Release(context.WithoutCancel(ctx), idemKey); rerr != nil {
				log.WithError(rerr).Warn("idempotency release failed")
			}
		}
		writeError(w, r, err)
		return
	}

	bg := context.WithoutCancel(ctx)
	if reserved {
		if err := h.Idem.Complete(bg, idemKey, order.ID); err != nil {
			log.WithError(err).WithField("order_id", order.ID).Warn("idempotency complete failed")
		}
	}
	h.cache(bg, order)

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) cache(ctx context.Context, o *orders.Order) {
	if h.Cache == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	if err := h.Cache.Set(ctx, o.ID, b); err != nil {
		log.WithError(err).WithField("order_id", o.ID).Debug("order cache set failed")
	}
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := h.ctx(r)
	defer cancel()

	// 1) cache
	if h.Cache != nil {
		if b, ok, err := h.Cache.Get(ctx, orderID); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	// 2) fallback DB
	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache(ctx, &o)
	writeJSON(w, http.StatusOK, o)
}
