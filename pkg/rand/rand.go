package rand

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Token returns a random alphanumeric string of length n read from crypto/rand.
func Token(n int) (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("unable to generate random token: %w", err)
		}
		out[i] = tokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// TokenWithHash returns a new token and its bcrypt hash.
func TokenWithHash(n int) (token, hash string, err error) {
	token, err = Token(n)
	if err != nil {
		return "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return token, string(h), nil
}
