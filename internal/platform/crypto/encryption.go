package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const keyBytes = 32

// Service seals sensitive values (bank accounts, TOTP secrets, payslip
// files) with AES-256-GCM. With no key configured it degrades to
// passthrough so development setups work without one.
type Service struct {
	aead cipher.AEAD
}

func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}

	material := decodeKey(key)
	if len(material) != keyBytes {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must decode to %d bytes, got %d", keyBytes, len(material))
	}

	block, err := aes.NewCipher(material)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s.aead != nil
}

// Encrypt seals plain and prepends the random nonce to the ciphertext.
func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if s.aead == nil {
		return plain, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext produced by Encrypt.
func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if s.aead == nil {
		return sealed, nil
	}

	size := s.aead.NonceSize()
	if len(sealed) < size {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	return s.aead.Open(nil, sealed[:size], sealed[size:], nil)
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(sealed []byte) (string, error) {
	plain, err := s.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// decodeKey accepts a raw 32-byte string, hex, or base64 (padded or raw).
// The raw form is checked first: a 32-char base64 string could only decode
// to 24 bytes, which is never a valid key. Returning the raw string on no
// match lets New report a length error instead of a decode error.
func decodeKey(raw string) []byte {
	if len(raw) == keyBytes {
		return []byte(raw)
	}
	if len(raw) == hex.EncodedLen(keyBytes) {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
