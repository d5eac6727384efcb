package httpx

import (
	"context"
	"github.com/ariefcatur/nexus-inventory/internal/notify"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

type NotificationsHandler struct {
	Store notify.Store
	Auth  *Authenticator // nil disables auth
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		if h.Auth != nil {
			r.Use(h.Auth.Middleware)
		}
		r.Get("/", h.list)
		r.Patch("/{id}/read", h.markRead)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ns, err := h.Store.ListNotifications(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Store.MarkNotificationRead(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
