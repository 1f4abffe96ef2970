// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
// Tests inject values (including a fixed clock via WithTime) the same way.
package requestcontext

import (
	"context"
	"time"

	id "sayit/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	actorKindKey   struct{}
	staffRoleKey   struct{}
	agencyIDKey    struct{}
	clientIPKey    struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// ActorID retrieves the authenticated actor ID from the context.
// Returns the zero value if not set.
func ActorID(ctx context.Context) id.ActorID {
	if v, ok := ctx.Value(actorIDKey{}).(id.ActorID); ok {
		return v
	}
	return id.ActorID{}
}

func WithActorID(ctx context.Context, actorID id.ActorID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// ActorKind retrieves the authenticated actor kind, or "" if unauthenticated.
func ActorKind(ctx context.Context) id.ActorKind {
	if v, ok := ctx.Value(actorKindKey{}).(id.ActorKind); ok {
		return v
	}
	return ""
}

func WithActorKind(ctx context.Context, kind id.ActorKind) context.Context {
	return context.WithValue(ctx, actorKindKey{}, kind)
}

func StaffRole(ctx context.Context) id.StaffRole {
	if v, ok := ctx.Value(staffRoleKey{}).(id.StaffRole); ok {
		return v
	}
	return ""
}

func WithStaffRole(ctx context.Context, role id.StaffRole) context.Context {
	return context.WithValue(ctx, staffRoleKey{}, role)
}

// AgencyID is set only for agent tokens.
func AgencyID(ctx context.Context) id.AgencyID {
	if v, ok := ctx.Value(agencyIDKey{}).(id.AgencyID); ok {
		return v
	}
	return id.AgencyID{}
}

func WithAgencyID(ctx context.Context, agencyID id.AgencyID) context.Context {
	return context.WithValue(ctx, agencyIDKey{}, agencyID)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// Device is a short human-readable summary ("Chrome on Linux") parsed from the
// User-Agent header; recorded on login for the actor's last-login entry.
func Device(ctx context.Context) string {
	if v, ok := ctx.Value(deviceKey{}).(string); ok {
		return v
	}
	return ""
}

func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request time if one was injected, else time.Now(). Services
// use this instead of time.Now() directly so tests can pin the clock.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
