// Package secure seals sender identifiers before they rest in the store.
package secure

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:"
	nonceSize    = 24
)

var ErrInvalidKey = errors.New("sender key must be 32 hex-encoded bytes")

// SenderCipher implements ports.SenderCipher with NaCl secretbox.
type SenderCipher struct {
	key [32]byte
}

// NewSenderCipher builds a cipher from a hex-encoded 32-byte key.
func NewSenderCipher(hexKey string) (*SenderCipher, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	c := &SenderCipher{}
	copy(c.key[:], raw)
	return c, nil
}

// IsSealed reports whether s was produced by Seal.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}

// Seal encrypts plain. Sealing an already sealed value returns it unchanged.
func (c *SenderCipher) Seal(plain string) (string, error) {
	if IsSealed(plain) {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (c *SenderCipher) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", errors.New("value is not sealed")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed sender: %w", err)
	}
	if len(raw) < nonceSize {
		return "", errors.New("sealed sender too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", errors.New("sealed sender failed authentication")
	}
	return string(plain), nil
}
