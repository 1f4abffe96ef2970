package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sayit/internal/notification"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
)

type notificationPayload struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func toNotificationPayload(n *notification.Notification) notificationPayload {
	return notificationPayload{
		ID:         n.ID.String(),
		Type:       string(n.Type),
		EntityKind: n.Entity.Kind,
		EntityID:   n.Entity.ID,
		Message:    n.Message,
		Read:       n.Read,
		ExpiresAt:  n.ExpiresAt,
		CreatedAt:  n.CreatedAt,
	}
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.notifications.Inbox(r.Context(), callerAccountRef(r))
	if err != nil {
		writeError(w, err)
		return
	}

	payload := make([]notificationPayload, 0, len(inbox))
	for i := range inbox {
		payload = append(payload, toNotificationPayload(&inbox[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": payload})
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "notification not found"))
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, callerAccountRef(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	count := h.notifications.MarkAllRead(r.Context(), callerAccountRef(r))
	writeJSON(w, http.StatusOK, map[string]int{"marked": count})
}
