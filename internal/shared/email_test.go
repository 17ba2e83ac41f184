package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Jane.Doe@Shop.Test ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@shop.test", email)

	for _, raw := range []string{"", "nope", "a@", "@b.co", "a b@c.co", "Jane <jane@shop.test>"} {
		_, err := NormalizeEmail(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}
