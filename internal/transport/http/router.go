// Package httptransport is the thin HTTP layer. Handlers decode, validate,
// and delegate to the domain services; no lifecycle or credential logic lives
// here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accesscodeservice "sayit/internal/accesscode/service"
	actorservice "sayit/internal/actor/service"
	agencystore "sayit/internal/agency/store"
	"sayit/internal/attachment"
	"sayit/internal/audit"
	complaintservice "sayit/internal/complaint/service"
	notifservice "sayit/internal/notification/service"
	"sayit/internal/token"
	id "sayit/pkg/domain"
)

type Handler struct {
	actors        *actorservice.Service
	codes         *accesscodeservice.Service
	tokens        *token.Service
	complaints    *complaintservice.Engine
	notifications *notifservice.Dispatcher
	agencies      agencystore.Store
	attachments   attachment.Store
	audit         *audit.Publisher
	logger        *slog.Logger
}

func NewHandler(
	actors *actorservice.Service,
	codes *accesscodeservice.Service,
	tokens *token.Service,
	complaints *complaintservice.Engine,
	notifications *notifservice.Dispatcher,
	agencies agencystore.Store,
	attachments attachment.Store,
	auditPub *audit.Publisher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		actors:        actors,
		codes:         codes,
		tokens:        tokens,
		complaints:    complaints,
		notifications: notifications,
		agencies:      agencies,
		attachments:   attachments,
		audit:         auditPub,
		logger:        logger,
	}
}

// NewRouter wires all endpoints. Login surfaces are separate routes per actor
// kind so each issues its own token audience.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(RequestContext)
	r.Use(RequestLogger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/citizen/register", h.handleRegisterCitizen)
		r.Post("/citizen/login", h.handleLogin(id.ActorCitizen))
		r.Post("/agent/login", h.handleLogin(id.ActorAgent))
		r.Post("/staff/login", h.handleLogin(id.ActorStaff))

		r.Post("/anonymous/identity", h.handleIssueIdentityCode)
		r.Post("/anonymous/login", h.handleAnonymousLogin)
		r.Post("/anonymous/revoke", h.handleRevokeIdentityCode)

		r.Post("/recovery/request", h.handleRecoveryRequest)
		r.Post("/recovery/confirm", h.handleRecoveryConfirm)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.tokens, h.logger))
			r.Post("/logout", h.handleLogout)
		})
	})

	r.Get("/agencies", h.handleListAgencies)

	r.Route("/complaints", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuth(h.tokens, h.logger))
			r.Get("/track/{trackingID}", h.handleGetByTrackingID)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.tokens, h.logger))
			r.Post("/", h.handleCreateComplaint)
			r.Post("/{complaintID}/responses", h.handleAddResponse)

			r.Group(func(r chi.Router) {
				r.Use(RequireStafflike)
				r.Post("/{complaintID}/assign", h.handleAssign)
				r.Post("/{complaintID}/status", h.handleSetStatus)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.tokens, h.logger))
		r.Post("/attachments", h.handleUploadAttachment)
		r.Get("/notifications", h.handleListNotifications)
		r.Post("/notifications/read-all", h.handleMarkAllNotificationsRead)
		r.Post("/notifications/{notificationID}/read", h.handleMarkNotificationRead)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.tokens, h.logger))
		r.Use(RequireAdmin)
		r.Post("/admin/actors", h.handleCreateActor)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
