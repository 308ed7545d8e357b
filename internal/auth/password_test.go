package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", h)

	assert.True(t, CheckPassword(h, "Sup3rSecret"))
	assert.False(t, CheckPassword(h, "sup3rsecret"))
	assert.False(t, CheckPassword("", "Sup3rSecret"))

	h2, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, h, h2, "salted hashes differ")
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	_, err := HashPassword(string(long), bcrypt.MinCost)
	assert.Error(t, err)
}
