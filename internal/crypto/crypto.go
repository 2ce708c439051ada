// Package crypto provides the encryption-at-rest layer: password-based key
// derivation, authenticated field encryption and deterministic content
// addressing. Uses PBKDF2-SHA256 for key derivation and AES-256-GCM for
// authenticated encryption. The derived key lives only in memory; the salt
// is persisted by the store and combined with the password to re-derive the
// same key on the next session.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/kshao/chatvault/internal/errors"
)

const (
	// SaltLength is the length of the random key-derivation salt.
	SaltLength = 32
	// KeyLength is the derived key length (AES-256).
	KeyLength = 32
	// MinIterations is the PBKDF2 iteration floor.
	MinIterations = 100000
)

var (
	// ErrNotInitialized is returned when encrypt/decrypt is called before
	// DeriveKey or after Clear.
	ErrNotInitialized = apperrors.New(apperrors.KindCrypto, apperrors.SeverityHigh, "encryption key not initialized")
	// ErrDecryptFailed is returned for tampered, wrong-key or structurally
	// invalid ciphertext. Decryption never returns partial plaintext.
	ErrDecryptFailed = apperrors.New(apperrors.KindCrypto, apperrors.SeverityHigh, "decryption failed")
)

// Service holds the process-wide key material with an explicit init/clear
// lifecycle. Safe for concurrent use.
type Service struct {
	mu         sync.RWMutex
	key        []byte
	salt       []byte
	iterations int
}

// NewService creates a Service with the given PBKDF2 iteration count,
// floored at MinIterations.
func NewService(iterations int) *Service {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Service{iterations: iterations}
}

// DeriveKey derives the session key from a password. When salt is nil a
// fresh random salt is generated; passing a previously persisted salt with
// the same password reproduces the same key. The salt actually used is
// returned so the caller can persist it.
func (s *Service) DeriveKey(password string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, apperrors.New(apperrors.KindCrypto, apperrors.SeverityHigh, "password cannot be empty")
	}
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, apperrors.Wrap(apperrors.KindCrypto, apperrors.SeverityHigh, "failed to generate salt", err)
		}
	} else if len(salt) != SaltLength {
		return nil, apperrors.Newf(apperrors.KindCrypto, apperrors.SeverityHigh, "invalid salt length: %d", len(salt))
	}

	key := pbkdf2.Key([]byte(password), salt, s.iterations, KeyLength, sha256.New)

	s.mu.Lock()
	s.zeroKeyLocked()
	s.key = key
	s.salt = append([]byte(nil), salt...)
	s.mu.Unlock()

	return append([]byte(nil), salt...), nil
}

// Ready reports whether a key is currently loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Salt returns a copy of the active salt, or nil before DeriveKey.
func (s *Service) Salt() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.salt == nil {
		return nil
	}
	return append([]byte(nil), s.salt...)
}

// Encrypt encrypts plaintext with the session key using AES-256-GCM. The
// result is an opaque base64 blob embedding nonce, ciphertext and tag. A
// fresh nonce is generated per call, so identical plaintexts never produce
// identical blobs.
func (s *Service) Encrypt(plaintext string) (string, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return "", ErrNotInitialized
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperrors.Wrap(apperrors.KindCrypto, apperrors.SeverityHigh, "failed to generate nonce", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts a blob produced by Encrypt. It fails closed: tampered
// ciphertext, a wrong key or an invalid blob all yield ErrDecryptFailed.
func (s *Service) Decrypt(blob string) (string, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return "", ErrNotInitialized
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptFailed
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", ErrDecryptFailed
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Clear overwrites the in-memory key material and releases it. Idempotent.
// Any Encrypt/Decrypt call after Clear fails with ErrNotInitialized.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zeroKeyLocked()
	s.salt = nil
}

func (s *Service) zeroKeyLocked() {
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindCrypto, apperrors.SeverityHigh, "failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindCrypto, apperrors.SeverityHigh, "failed to create GCM", err)
	}
	return gcm, nil
}

// HashID derives the deterministic content-addressed message identifier.
// Same inputs always yield the same id, which makes re-imports idempotent.
// The conversation id is part of the input so identical content at the same
// second in two conversations cannot collide.
func HashID(conversationID, content string, timestamp int64) string {
	h := sha256.New()
	h.Write([]byte(conversationID))
	h.Write([]byte{0})
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// ConstantTimeEquals compares two strings without early exit on the first
// mismatching byte. Unequal lengths return false; only the length itself is
// observable through timing, never the position of a difference.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// FormatSalt encodes a salt for storage in the metadata table.
func FormatSalt(salt []byte) string {
	return base64.StdEncoding.EncodeToString(salt)
}

// ParseSalt decodes a salt persisted by FormatSalt.
func ParseSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindCrypto, apperrors.SeverityHigh, "invalid persisted salt", err)
	}
	if len(salt) != SaltLength {
		return nil, apperrors.Newf(apperrors.KindCrypto, apperrors.SeverityHigh, "invalid persisted salt length: %d", len(salt))
	}
	return salt, nil
}

// String implements fmt.Stringer and redacts key material.
func (s *Service) String() string {
	return fmt.Sprintf("crypto.Service{ready: %t, iterations: %d}", s.Ready(), s.iterations)
}
