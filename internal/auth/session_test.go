package auth

import (
	"crypto/sha512"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialHash_Deterministic(t *testing.T) {
	h1 := credentialHash("ab", "p")
	h2 := credentialHash("ab", "p")
	assert.Equal(t, h1, h2)
}

func TestCredentialHash_SplitSaltLaw(t *testing.T) {
	username := "ab"
	password := "p"
	n := len(username)
	half := n / 2

	want := sha512.Sum512([]byte(username[:half] + password + username[half:]))
	got := credentialHash(username, password)

	assert.Equal(t, want[:], got)
}

func TestCredentialHash_DifferentPasswordsDiffer(t *testing.T) {
	assert.NotEqual(t, credentialHash("ab", "p1"), credentialHash("ab", "p2"))
}

func TestNewSessionToken_RoundTrip(t *testing.T) {
	raw, hash, err := newSessionToken()
	require.NoError(t, err)
	assert.Len(t, raw, 16)

	token := base64.StdEncoding.EncodeToString(raw)
	decodedHash, err := decodeToken(token)
	require.NoError(t, err)

	assert.Equal(t, hash, decodedHash)

	sum := sha512.Sum512(raw)
	assert.Equal(t, sum[:], decodedHash)
}

func TestDecodeToken_Malformed(t *testing.T) {
	_, err := decodeToken("not-valid-base64!!!")
	assert.Error(t, err)
}
