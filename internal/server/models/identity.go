// Package models defines the records persisted by gophmsg: identities and
// encrypted envelopes, plus the delivery state machine that governs them.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
)

// Identity is a registered user. ID is the phone-number style identifier and
// never changes once created.
type Identity struct {
	ID           int64
	PublicKey    []byte // PEM "PUBLIC KEY"
	PasswordHash []byte // bcrypt
	CreatedAt    time.Time
}

// Identifiers are ten decimal digits starting with 5.
var identifierPattern = regexp.MustCompile(`^5[0-9]{9}$`)

// ParseIdentifier validates s and returns it as an identifier.
func ParseIdentifier(s string) (int64, error) {
	if !identifierPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", common.ErrMalformedIdentifier, s)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", common.ErrMalformedIdentifier, s)
	}
	return id, nil
}

// ValidateIdentifier checks an identifier already held as a number.
func ValidateIdentifier(id int64) error {
	if !identifierPattern.MatchString(strconv.FormatInt(id, 10)) {
		return fmt.Errorf("%w: %d", common.ErrMalformedIdentifier, id)
	}
	return nil
}
