package httptransport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"sayit/internal/token"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/requestcontext"
)

// RequestContext stamps the request-scoped values every service reads: a
// request ID, the request time (one "now" per request), the client IP, and a
// short device summary from the User-Agent.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))
		if device := deviceSummary(r.UserAgent()); device != "" {
			ctx = requestcontext.WithDevice(ctx, device)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(r.Context()),
			)
		})
	}
}

// Verifier is the slice of the token service the middleware needs.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stamps the
// verified actor into the context.
func RequireAuth(tokens Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			ctx, err := authenticate(r, tokens, raw)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth authenticates when a bearer token is presented and passes the
// request through anonymously otherwise. A presented-but-invalid token is
// still rejected.
func OptionalAuth(tokens Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := authenticate(r, tokens, raw)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStafflike allows staff and agents only. Must run after RequireAuth.
func RequireStafflike(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestcontext.ActorKind(r.Context()).IsStafflike() {
			writeError(w, dErrors.New(dErrors.CodeForbidden, "staff or agent access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows staff admins only. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if requestcontext.ActorKind(ctx) != id.ActorStaff || requestcontext.StaffRole(ctx) != id.RoleAdmin {
			writeError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authenticate(r *http.Request, tokens Verifier, raw string) (context.Context, error) {
	claims, err := tokens.Verify(r.Context(), raw)
	if err != nil {
		return nil, err
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	ctx := r.Context()
	ctx = requestcontext.WithActorID(ctx, subjectID)
	ctx = requestcontext.WithActorKind(ctx, claims.Kind())
	if claims.Role != "" {
		ctx = requestcontext.WithStaffRole(ctx, id.StaffRole(claims.Role))
	}
	if claims.AgencyID != "" {
		agencyID, err := id.ParseAgencyID(claims.AgencyID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		ctx = requestcontext.WithAgencyID(ctx, agencyID)
	}
	return ctx, nil
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, prefix)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceSummary condenses a User-Agent header into "Browser on OS" for the
// last-login record.
func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	default:
		return os
	}
}
