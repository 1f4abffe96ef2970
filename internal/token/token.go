// Package token mints and verifies the signed bearer tokens that carry actor
// identity between requests. Tokens from the four login surfaces are not
// interchangeable: each kind gets its own audience and issuer strings.
package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sayit/internal/platform/config"
	id "sayit/pkg/domain"
	dErrors "sayit/pkg/domain-errors"
	"sayit/pkg/requestcontext"
)

// Verification failure facts. The HTTP layer maps all of them to 401; tests
// and callers distinguish them with errors.Is.
var (
	ErrMalformed      = errors.New("token malformed")
	ErrExpired        = errors.New("token expired")
	ErrRevoked        = errors.New("token revoked")
	ErrUnknownSubject = errors.New("token subject unknown or inactive")
)

// Claims is the claim-set carried by every token.
type Claims struct {
	ActorKind string `json:"kind"`
	Role      string `json:"role,omitempty"`
	AgencyID  string `json:"agency_id,omitempty"`
	jwt.RegisteredClaims
}

// Kind returns the typed actor kind from the claim-set.
func (c *Claims) Kind() id.ActorKind { return id.ActorKind(c.ActorKind) }

// SubjectID parses the subject claim.
func (c *Claims) SubjectID() (id.ActorID, error) {
	return id.ParseActorID(c.Subject)
}

// IssueRequest names the identity a token is minted for. NotAfter optionally
// caps the expiry below the kind's default lifetime; the anonymous flow uses
// it to keep tokens from outliving their identity code.
type IssueRequest struct {
	ActorID  id.ActorID
	Kind     id.ActorKind
	Role     id.StaffRole
	AgencyID id.AgencyID
	NotAfter time.Time
}

// Service issues and verifies tokens and fronts the revocation list.
type Service struct {
	signingKey []byte
	lifetimes  config.TokenConfig
	trl        RevocationList
	subjects   SubjectResolver
}

// SubjectResolver re-checks a token's subject against the credential store on
// every verification. Never cached: a deactivated account dies with its next
// request, not with its token's natural expiry.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, kind id.ActorKind, actorID id.ActorID) error
}

// RevocationList is the advisory, process-scoped revocation set. See the
// revocation subpackage for the memory/redis/postgres implementations.
type RevocationList interface {
	Revoke(ctx context.Context, key string, ttl time.Duration) error
	IsRevoked(ctx context.Context, key string) (bool, error)
}

func NewService(signingKey string, lifetimes config.TokenConfig, trl RevocationList, subjects SubjectResolver) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		lifetimes:  lifetimes,
		trl:        trl,
		subjects:   subjects,
	}
}

// Issue mints a signed token for the actor with kind-specific lifetime,
// audience, and issuer.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (string, *Claims, error) {
	if req.ActorID.IsNil() {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "actor ID required")
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(s.lifetime(req.Kind, req.Role))
	if !req.NotAfter.IsZero() && req.NotAfter.Before(expiresAt) {
		expiresAt = req.NotAfter
	}
	if !expiresAt.After(now) {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "token would be issued already expired")
	}

	claims := &Claims{
		ActorKind: req.Kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.ActorID.String(),
			Issuer:    issuerFor(req.Kind),
			Audience:  []string{audienceFor(req.Kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	if req.Role != "" {
		claims.Role = req.Role.String()
	}
	if !req.AgencyID.IsNil() {
		claims.AgencyID = req.AgencyID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, claims, nil
}

// Verify validates signature, expiry, revocation, and subject liveness, in
// that order. Each failure wraps its sentinel so callers can tell them apart.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(ErrExpired, dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeUnauthorized, "invalid token claims")
	}

	kind, err := id.ParseActorKind(claims.ActorKind)
	if err != nil {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Issuer != issuerFor(kind) || !containsAudience(claims.Audience, audienceFor(kind)) {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeUnauthorized, "token not valid for this surface")
	}

	revoked, err := s.trl.IsRevoked(ctx, revocationKey(raw))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation check failed")
	}
	if revoked {
		return nil, dErrors.Wrap(ErrRevoked, dErrors.CodeUnauthorized, "token revoked")
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, dErrors.Wrap(ErrMalformed, dErrors.CodeUnauthorized, "invalid token subject")
	}
	if err := s.subjects.ResolveSubject(ctx, kind, subjectID); err != nil {
		return nil, dErrors.Wrap(ErrUnknownSubject, dErrors.CodeUnauthorized, "subject no longer valid")
	}

	return claims, nil
}

// Revoke adds the raw token to the revocation set for the remainder of its
// natural life. Unparseable tokens are revoked for the longest configured
// lifetime; failing open on garbage input would be worse.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	ttl := s.lifetimes.AnonymousTTL // longest lifetime in the fleet

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err == nil {
		if claims, ok := parsed.Claims.(*Claims); ok && claims.ExpiresAt != nil {
			remaining := time.Until(claims.ExpiresAt.Time)
			if remaining <= 0 {
				return nil // already expired, nothing to revoke
			}
			ttl = remaining
		}
	}

	if err := s.trl.Revoke(ctx, revocationKey(raw), ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke token")
	}
	return nil
}

// lifetime returns the kind default. Staff lifetimes step down with privilege:
// the more a role can do, the shorter its token lives.
func (s *Service) lifetime(kind id.ActorKind, role id.StaffRole) time.Duration {
	switch kind {
	case id.ActorCitizen:
		return s.lifetimes.CitizenTTL
	case id.ActorAgent:
		return s.lifetimes.AgentTTL
	case id.ActorAnonymous:
		return s.lifetimes.AnonymousTTL
	case id.ActorStaff:
		switch role {
		case id.RoleAdmin:
			return 8 * time.Hour
		case id.RoleSupervisor:
			return 10 * time.Hour
		default:
			return 12 * time.Hour
		}
	}
	return time.Hour
}

func issuerFor(kind id.ActorKind) string   { return "sayit/" + kind.String() }
func audienceFor(kind id.ActorKind) string { return "sayit:" + kind.String() }

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// revocationKey hashes the raw compact token so the revocation stores never
// hold live bearer credentials.
func revocationKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
