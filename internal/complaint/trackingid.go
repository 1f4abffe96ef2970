package complaint

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const trackingSequenceSpace = 100_000

var trackingIDPattern = regexp.MustCompile(`^SAY-\d{4}-\d{5}$`)

// NewTrackingID draws a random public handle of the form SAY-<year>-<5 digits>.
// Uniqueness is enforced at write time: the store reports a collision and the
// caller re-rolls.
func NewTrackingID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(trackingSequenceSpace))
	if err != nil {
		// crypto/rand only fails when the platform source is broken.
		panic(fmt.Sprintf("tracking id entropy unavailable: %v", err))
	}
	return fmt.Sprintf("SAY-%04d-%05d", now.Year(), n.Int64())
}

// ValidTrackingID reports whether s has the public handle shape. Lookups use
// it to short-circuit before hitting the store.
func ValidTrackingID(s string) bool {
	return trackingIDPattern.MatchString(s)
}
