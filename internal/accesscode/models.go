package accesscode

import (
	"time"

	id "sayit/pkg/domain"
)

// RecoveryCodeTTL bounds how long a password reset window stays open.
const RecoveryCodeTTL = 24 * time.Hour

// RecoveryCode authorizes one password reset for one account. At most one is
// outstanding per email at any time: issuing a new one replaces the old. The
// record is deleted when the reset completes, not when the code is verified.
type RecoveryCode struct {
	Code      string
	Email     string
	Kind      id.ActorKind
	ActorID   id.ActorID
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c *RecoveryCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
