package rand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestToken(t *testing.T) {
	a, err := Token(32)
	require.NoError(t, err)
	b, err := Token(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	for _, c := range a {
		assert.True(t, strings.ContainsRune(tokenAlphabet, c), "unexpected character %q", c)
	}
}

func TestTokenWithHash(t *testing.T) {
	token, hash, err := TokenWithHash(16)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)))
}
