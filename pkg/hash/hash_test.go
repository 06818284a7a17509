package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", h)

	cost, err := bcrypt.Cost([]byte(h))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("secret")
	require.NoError(t, err)

	assert.True(t, CheckPassword(h, "secret"))
	assert.False(t, CheckPassword(h, "Secret"))
	assert.False(t, CheckPassword("not-a-hash", "secret"))
}
