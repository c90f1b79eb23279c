package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		salt := "a1b2c3d4e5f60718a1b2c3d4e5f60718"
		first := HashPassword("secret", salt)
		second := HashPassword("secret", salt)
		assert.Equal(t, first, second)
	})

	t.Run("SaltChangesHash", func(t *testing.T) {
		first := HashPassword("secret", "a1b2c3d4e5f60718a1b2c3d4e5f60718")
		second := HashPassword("secret", "00000000000000000000000000000000")
		assert.NotEqual(t, first, second)
	})

	t.Run("HexEncoded64Bytes", func(t *testing.T) {
		hash := HashPassword("secret", "a1b2c3d4e5f60718a1b2c3d4e5f60718")
		assert.Len(t, hash, 128)
	})
}

func TestVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	hash := HashPassword("correct horse battery staple", salt)

	t.Run("RoundTrip", func(t *testing.T) {
		assert.True(t, VerifyPassword("correct horse battery staple", hash, salt))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		assert.False(t, VerifyPassword("incorrect horse", hash, salt))
	})

	t.Run("WrongSalt", func(t *testing.T) {
		other, err := GenerateSalt()
		require.NoError(t, err)
		assert.False(t, VerifyPassword("correct horse battery staple", hash, other))
	})
}

func TestGenerateSalt(t *testing.T) {
	first, err := GenerateSalt()
	require.NoError(t, err)
	second, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}
