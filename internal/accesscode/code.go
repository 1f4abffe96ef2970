// Package accesscode implements the two families of human-typable codes:
// persistent anonymous-identity codes and ephemeral password-recovery codes.
// They share one alphabet and generator and nothing else; conflating their
// lifetimes or consumption rules has bitten this domain before, so the two
// entity types stay separate on purpose.
package accesscode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	dErrors "sayit/pkg/domain-errors"
)

const (
	// Prefix is the public brand prefix shared by access codes and tracking IDs.
	Prefix = "SAY"

	codeDigits = 9
)

var maxCode = big.NewInt(1_000_000_000) // 10^9, exclusive upper bound

// Generate returns a fresh code: "SAY" followed by nine zero-padded digits,
// drawn from crypto/rand. Uniqueness is the store's concern, not the
// generator's.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, maxCode)
	if err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	return fmt.Sprintf("%s%09d", Prefix, n.Int64()), nil
}

// Normalize canonicalizes user input: surrounding whitespace dropped,
// case-insensitive, stored and compared uppercase. Rejects anything that is
// not exactly "SAY" + nine digits.
func Normalize(input string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(input))
	if len(code) != len(Prefix)+codeDigits || !strings.HasPrefix(code, Prefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed access code")
	}
	for _, r := range code[len(Prefix):] {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "malformed access code")
		}
	}
	return code, nil
}
