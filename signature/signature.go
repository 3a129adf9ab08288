// Package signature signs webhook bodies and download links with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSignature = "X-PromptForge-Signature"
	HeaderEvent     = "X-PromptForge-Event"
	HeaderDelivery  = "X-PromptForge-Delivery"

	prefix = "sha256="
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrLinkExpired      = errors.New("link expired")
)

// Sign returns "sha256=<hex hmac>" over the exact body bytes. It is a pure function of
// its inputs, so a stored body re-signed with the same secret yields the same header.
func Sign(secret string, body []byte) string {
	return prefix + hex.EncodeToString(mac(secret, body))
}

// Verify checks a signature header against body in constant time
func Verify(secret string, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, prefix) {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(provided, mac(secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignDownload signs "<id>.<expires unix>" for a time-limited download link
func SignDownload(key, id string, expires time.Time) string {
	return hex.EncodeToString(mac(key, downloadMessage(id, expires.Unix())))
}

// VerifyDownload validates a download link's expiry and signature
func VerifyDownload(key, id, expiresParam, sig string, now time.Time) error {
	expires, err := strconv.ParseInt(strings.TrimSpace(expiresParam), 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}

	provided, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(provided, mac(key, downloadMessage(id, expires))) {
		return ErrInvalidSignature
	}

	if now.UTC().Unix() > expires {
		return ErrLinkExpired
	}
	return nil
}

func downloadMessage(id string, expires int64) []byte {
	msg := make([]byte, 0, len(id)+21)
	msg = append(msg, id...)
	msg = append(msg, '.')
	msg = strconv.AppendInt(msg, expires, 10)
	return msg
}

func mac(secret string, msg []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	_, _ = m.Write(msg)
	return m.Sum(nil)
}
