package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	for _, raw := range []string{"0712345678", "+254712345678", "254712345678", " 0712 345 678 "} {
		got, err := NormalizePhone(raw, "KE")
		require.NoError(t, err, raw)
		assert.Equal(t, "254712345678", got, raw)
	}

	_, err := NormalizePhone("12", "KE")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NormalizePhone("", "")
	assert.ErrorIs(t, err, ErrValidation)
}
