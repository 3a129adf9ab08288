// Package encryption implements password-based authenticated encryption for export
// artifacts: PBKDF2-SHA256 key derivation feeding AES-256-GCM.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	FormatVersion = 1
	Algorithm     = "AES-256-GCM"
	KDF           = "PBKDF2-SHA256"

	DefaultIterations = 100000
	minIterations     = 10000
	maxIterations     = 2000000

	saltSize = 16
	keySize  = 32
	tagSize  = 16
)

var (
	// ErrIntegrity is returned for a wrong password or any modified payload field.
	ErrIntegrity     = errors.New("integrity check failed: wrong password or tampered payload")
	ErrEmptyPassword = errors.New("password is required")
)

// Payload is a self-describing encrypted blob. Binary fields are base64 (std encoding).
type Payload struct {
	Version    int    `json:"version"`
	Algorithm  string `json:"algorithm"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Ciphertext string `json:"ciphertext"`
}

// Encrypt seals plaintext under a key derived from password with a fresh salt and IV,
// so two calls with identical inputs produce different payloads.
func Encrypt(plaintext []byte, password string) (*Payload, error) {
	return encrypt(plaintext, password, DefaultIterations)
}

func encrypt(plaintext []byte, password string, iterations int) (*Payload, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(deriveKey(password, salt, iterations))
	if err != nil {
		return nil, err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the tag; keep it in its own field.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return &Payload{
		Version:    FormatVersion,
		Algorithm:  Algorithm,
		KDF:        KDF,
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(tag),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens p with password. Every failure other than a missing password is
// reported as ErrIntegrity; no partial plaintext is ever returned.
func Decrypt(p *Payload, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if p == nil {
		return nil, ErrIntegrity
	}
	if p.Version != FormatVersion || p.Algorithm != Algorithm || p.KDF != KDF {
		return nil, ErrIntegrity
	}
	if p.Iterations < minIterations || p.Iterations > maxIterations {
		return nil, ErrIntegrity
	}

	salt, err := decodeField(p.Salt, saltSize)
	if err != nil {
		return nil, err
	}
	tag, err := decodeField(p.Tag, tagSize)
	if err != nil {
		return nil, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return nil, ErrIntegrity
	}

	gcm, err := newGCM(deriveKey(password, salt, p.Iterations))
	if err != nil {
		return nil, err
	}

	iv, err := decodeField(p.IV, gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Marshal serializes a payload for storage
func Marshal(p *Payload) ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal parses a stored payload; malformed input is an integrity failure
func Unmarshal(data []byte) (*Payload, error) {
	if !IsEncryptedPayload(data) {
		return nil, ErrIntegrity
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrIntegrity
	}
	return &p, nil
}

// EncryptBytes encrypts and serializes in one step
func EncryptBytes(plaintext []byte, password string) ([]byte, error) {
	p, err := Encrypt(plaintext, password)
	if err != nil {
		return nil, err
	}
	return Marshal(p)
}

// DecryptBytes parses and decrypts a serialized payload
func DecryptBytes(data []byte, password string) ([]byte, error) {
	p, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return Decrypt(p, password)
}

// IsEncryptedPayload reports whether value has the shape of a serialized Payload.
// It only inspects structure; no decryption is attempted.
func IsEncryptedPayload(value []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return false
	}

	for _, key := range []string{"salt", "iv", "tag", "ciphertext", "algorithm"} {
		raw, ok := fields[key]
		if !ok {
			return false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
	}

	raw, ok := fields["version"]
	if !ok {
		return false
	}
	var version int
	return json.Unmarshal(raw, &version) == nil
}

func deriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return gcm, nil
}

func decodeField(value string, size int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(b) != size {
		return nil, ErrIntegrity
	}
	return b, nil
}
