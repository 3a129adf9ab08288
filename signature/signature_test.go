package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSign_IsPureAndMatchesHMAC(t *testing.T) {
	body := []byte(`{"event":"export.completed","data":{"id":"x"}}`)

	first := Sign("whsec_test", body)
	second := Sign("whsec_test", body)
	assert.Equal(t, first, second)

	m := hmac.New(sha256.New, []byte("whsec_test"))
	m.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(m.Sum(nil)), first)
	assert.True(t, strings.HasPrefix(first, "sha256="))
}

func TestSign_DiffersBySecretAndBody(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.NotEqual(t, Sign("one", body), Sign("two", body))
	assert.NotEqual(t, Sign("one", body), Sign("one", []byte(`{"a":2}`)))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	header := Sign("dev-secret", body)

	assert.NoError(t, Verify("dev-secret", body, header))
	assert.ErrorIs(t, Verify("WRONG-SECRET", body, header), ErrInvalidSignature)
	assert.ErrorIs(t, Verify("dev-secret", []byte(`{"hello":"World"}`), header), ErrInvalidSignature)
	assert.ErrorIs(t, Verify("dev-secret", body, strings.TrimPrefix(header, "sha256=")), ErrInvalidSignature)
	assert.ErrorIs(t, Verify("dev-secret", body, "sha256=not-hex!!!"), ErrInvalidSignature)
}

func TestDownloadLinks(t *testing.T) {
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	expires := now.Add(15 * time.Minute)
	sig := SignDownload("key", "exp-1", expires)
	expiresParam := strconv.FormatInt(expires.Unix(), 10)

	assert.NoError(t, VerifyDownload("key", "exp-1", expiresParam, sig, now))
	assert.ErrorIs(t, VerifyDownload("key", "exp-2", expiresParam, sig, now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyDownload("other", "exp-1", expiresParam, sig, now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyDownload("key", "exp-1", "not-a-number", sig, now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyDownload("key", "exp-1", expiresParam, sig, expires.Add(time.Second)), ErrLinkExpired)

	// Extending the expiry invalidates the signature.
	later := strconv.FormatInt(expires.Add(time.Hour).Unix(), 10)
	assert.ErrorIs(t, VerifyDownload("key", "exp-1", later, sig, now), ErrInvalidSignature)
}
