package rtms

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("client-1", "uuid-abc", "stream-9", "topsecret")
	b := Sign("client-1", "uuid-abc", "stream-9", "topsecret")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}

func TestSignMessageFormat(t *testing.T) {
	secret := "topsecret"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("client-1,uuid-abc,stream-9"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign("client-1", "uuid-abc", "stream-9", secret))
}

func TestSignVariesWithInputs(t *testing.T) {
	base := Sign("client-1", "uuid-abc", "stream-9", "topsecret")
	assert.NotEqual(t, base, Sign("client-2", "uuid-abc", "stream-9", "topsecret"))
	assert.NotEqual(t, base, Sign("client-1", "uuid-xyz", "stream-9", "topsecret"))
	assert.NotEqual(t, base, Sign("client-1", "uuid-abc", "stream-8", "topsecret"))
	assert.NotEqual(t, base, Sign("client-1", "uuid-abc", "stream-9", "othersecret"))
}
