package httptransport

import (
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"

	"sayit/internal/actor"
	actorservice "sayit/internal/actor/service"
	"sayit/internal/audit"
	"sayit/internal/token"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/requestcontext"
)

type registerRequest struct {
	Email    string `json:"email" valid:"email,required"`
	Password string `json:"password" valid:"required,stringlength(8|128)"`
}

type loginRequest struct {
	Email    string `json:"email" valid:"email,required"`
	Password string `json:"password" valid:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"`
}

// handleRegisterCitizen is the public signup endpoint. Agents and staff are
// provisioned through the admin surface instead.
func (h *Handler) handleRegisterCitizen(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	account, err := h.actors.CreateActor(r.Context(), actorservice.NewAccount{
		Kind:     id.ActorCitizen,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"actor_id": account.ID.String(),
		"email":    account.Email,
	})
}

type createActorRequest struct {
	Kind     string `json:"kind" valid:"required"`
	Email    string `json:"email" valid:"email,required"`
	Password string `json:"password" valid:"required,stringlength(8|128)"`
	Role     string `json:"role"`
	AgencyID string `json:"agency_id"`
}

// handleCreateActor provisions agent and staff accounts. Admin only.
func (h *Handler) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req createActorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	kind, err := id.ParseActorKind(req.Kind)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown actor kind"))
		return
	}

	create := actorservice.NewAccount{Kind: kind, Email: req.Email, Password: req.Password}
	if req.Role != "" {
		role, err := id.ParseStaffRole(req.Role)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown staff role"))
			return
		}
		create.Role = role
	}
	if req.AgencyID != "" {
		agencyID, err := id.ParseAgencyID(req.AgencyID)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid agency id"))
			return
		}
		create.AgencyID = agencyID
	}

	account, err := h.actors.CreateActor(r.Context(), create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"actor_id": account.ID.String(),
		"email":    account.Email,
		"kind":     account.Kind.String(),
	})
}

// handleLogin authenticates a credentialed actor. The kind comes from the
// route, so citizen, agent, and staff logins stay separate surfaces with
// separately-scoped tokens.
func (h *Handler) handleLogin(kind id.ActorKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if _, err := govalidator.ValidateStruct(req); err != nil {
			// Uniform answer; validation detail would leak which field failed.
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
			return
		}

		account, err := h.actors.VerifyPassword(r.Context(), kind, req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		signed, claims, err := h.tokens.Issue(r.Context(), token.IssueRequest{
			ActorID:  account.ID,
			Kind:     account.Kind,
			Role:     account.Role,
			AgencyID: account.AgencyID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			Token:     signed,
			ExpiresAt: claims.ExpiresAt.Time,
			ActorID:   account.ID.String(),
			Kind:      account.Kind.String(),
		})
	}
}

// handleIssueIdentityCode mints a new anonymous identity. The code appears in
// this response and nowhere else, ever.
func (h *Handler) handleIssueIdentityCode(w http.ResponseWriter, r *http.Request) {
	issued, err := h.codes.IssueIdentityCode(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"code":       issued.Code,
		"actor_id":   issued.Identity.ID.String(),
		"expires_at": issued.Identity.ExpiresAt,
	})
}

type codeLoginRequest struct {
	Code string `json:"code" valid:"required"`
}

// handleAnonymousLogin exchanges an identity code for a token. The token's
// expiry is capped at the code's own, so a token can never outlive the
// identity it stands for.
func (h *Handler) handleAnonymousLogin(w http.ResponseWriter, r *http.Request) {
	var req codeLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.codes.VerifyIdentityCode(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	signed, claims, err := h.tokens.Issue(r.Context(), token.IssueRequest{
		ActorID:  identity.ID,
		Kind:     id.ActorAnonymous,
		NotAfter: identity.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		ActorID:   identity.ID.String(),
		Kind:      id.ActorAnonymous.String(),
	})
}

// handleRevokeIdentityCode invalidates an identity code ahead of expiry.
// Possession of the code is the credential, so no token is required.
func (h *Handler) handleRevokeIdentityCode(w http.ResponseWriter, r *http.Request) {
	var req codeLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.codes.RevokeIdentityCode(r.Context(), req.Code); err != nil {
		writeError(w, err)
		return
	}
	h.publishAuthAudit(r, audit.ActionIdentityRevoked)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogout revokes the presented bearer token. Revocation is scoped to
// this process; a sibling instance keeps accepting the token until expiry.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.tokens.Revoke(r.Context(), raw); err != nil {
		writeError(w, err)
		return
	}
	h.publishAuthAudit(r, audit.ActionTokenRevoked)
	w.WriteHeader(http.StatusNoContent)
}

type recoveryRequest struct {
	Kind  string `json:"kind" valid:"required"`
	Email string `json:"email" valid:"email,required"`
}

// handleRecoveryRequest kicks off a password reset. The response is identical
// whether or not the account exists.
func (h *Handler) handleRecoveryRequest(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	kind, err := id.ParseActorKind(req.Kind)
	if err != nil || kind == id.ActorAnonymous {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown actor kind"))
		return
	}

	if err := h.codes.RequestPasswordReset(r.Context(), kind, req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a recovery code has been sent",
	})
}

type recoveryConfirmRequest struct {
	Email       string `json:"email" valid:"email,required"`
	Code        string `json:"code" valid:"required"`
	NewPassword string `json:"new_password" valid:"required,stringlength(8|128)"`
}

func (h *Handler) handleRecoveryConfirm(w http.ResponseWriter, r *http.Request) {
	var req recoveryConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	if err := h.codes.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishAuthAudit(r *http.Request, action string) {
	if h.audit == nil {
		return
	}
	ctx := r.Context()
	ev := audit.NewEvent(action, "actor", requestcontext.ActorID(ctx).String(), requestcontext.Now(ctx))
	ev.ActorKind = requestcontext.ActorKind(ctx)
	if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
		ev.ActorID = actorID.String()
	}
	h.audit.Publish(ev)
}

// callerAccountRef is a convenience for handlers needing the authenticated
// actor as a typed reference.
func callerAccountRef(r *http.Request) actor.Ref {
	ctx := r.Context()
	return actor.Ref{
		Kind: requestcontext.ActorKind(ctx),
		ID:   requestcontext.ActorID(ctx),
	}
}
