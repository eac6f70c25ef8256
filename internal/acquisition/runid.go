package acquisition

import (
	"errors"
	"fmt"
	"strings"
)

// MaxRunIDLength bounds run identifiers accepted from clients.
const MaxRunIDLength = 128

// ErrInvalidRunID is returned for run identifiers that are not safe to use
// as labels, file names or table keys.
var ErrInvalidRunID = errors.New("invalid run id")

// ValidateRunID accepts A-Z a-z 0-9 . _ - without "..", up to
// MaxRunIDLength characters. The empty id is valid and selects the default
// run.
func ValidateRunID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxRunIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidRunID, MaxRunIDLength)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidRunID, id)
	}
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return fmt.Errorf("%w: %q has disallowed character %q", ErrInvalidRunID, id, r)
	}
	return nil
}
