package store

import (
	"context"

	"sayit/internal/accesscode"
)

// RecoveryStore persists outstanding recovery codes, keyed by normalized
// email. Replace is the only write path for issuance: it atomically removes
// any prior code for the email and installs the new one, which is what keeps
// the one-outstanding-code-per-email invariant race-free.
type RecoveryStore interface {
	Replace(ctx context.Context, code *accesscode.RecoveryCode) error
	FindByEmail(ctx context.Context, email string) (*accesscode.RecoveryCode, error)
	Delete(ctx context.Context, email string) error
}
