package acquisition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRunID(t *testing.T) {
	good := []string{"", "run-1", "A.b_c-9", "Wowee", strings.Repeat("x", MaxRunIDLength)}
	for _, id := range good {
		assert.NoError(t, ValidateRunID(id), id)
	}
	bad := []string{"..", "a..b", "run/1", `run\1`, "run 1", "rün", strings.Repeat("x", MaxRunIDLength+1)}
	for _, id := range bad {
		assert.ErrorIs(t, ValidateRunID(id), ErrInvalidRunID, id)
	}
}
