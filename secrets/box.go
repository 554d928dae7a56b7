// Package secrets seals small credential strings (issue-tracker API tokens)
// before they are written to storage.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Box performs authenticated symmetric sealing with a 32-byte key.
type Box struct {
	key [32]byte
}

// NewBox builds a Box from a 64-character hex key.
func NewBox(hexKey string) (*Box, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid seal key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid seal key: need 32 bytes, got %d", len(raw))
	}
	var b Box
	copy(b.key[:], raw)
	return &b, nil
}

// Seal encrypts plaintext and returns a base64 payload of nonce+ciphertext.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (b *Box) Open(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding sealed payload: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("sealed payload too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", fmt.Errorf("sealed payload failed authentication")
	}
	return string(plaintext), nil
}
