// Package crypto implements the agent's two data-at-rest primitives:
// per-record authenticated encryption and content hashing.
//
// Every backed-up object is sealed with AES-256-GCM under a key derived
// fresh, per record, via PBKDF2-HMAC-SHA256 over the operator's
// passphrase and a random 16-byte salt. The salt travels with the
// catalog row, never inside the object payload; an object can only be
// opened with the passphrase it was sealed under, so changing the
// passphrase means re-encrypting stored objects under fresh salts.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the number of random bytes drawn per record.
	SaltSize = 16

	// keySize is the derived AES key size in bytes (AES-256).
	keySize = 32

	// gcmNonceSize is the GCM nonce size in bytes.
	gcmNonceSize = 12

	// hashChunkSize bounds memory use when hashing files.
	hashChunkSize = 4096
)

// ErrIntegrity is returned when decryption fails: a tampered ciphertext,
// the wrong salt, or a wrong passphrase. The construction must never
// return wrong plaintext silently, so every failure mode collapses to
// this single sentinel.
var ErrIntegrity = errors.New("crypto: integrity check failed")

// Sealer derives per-record keys from a single operator-supplied
// passphrase and seals/opens payloads with AES-256-GCM.
type Sealer struct {
	passphrase string
	iterations int
}

// NewSealer constructs a Sealer. iterations is the PBKDF2 work factor;
// pass 0 to use the spec default of 100,000.
func NewSealer(passphrase string, iterations int) *Sealer {
	if iterations <= 0 {
		iterations = 100_000
	}
	return &Sealer{passphrase: passphrase, iterations: iterations}
}

// Encrypt draws a random salt, derives a key, and seals plaintext into a
// self-describing ciphertext (nonce || ciphertext || tag). The salt is
// returned separately; the caller stores it in the catalog row, not in
// the object payload.
func (s *Sealer) Encrypt(plaintext []byte) (ciphertext, salt []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate salt: %w", err)
	}

	gcm, err := s.gcmFor(salt)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, salt, nil
}

// Decrypt reverses Encrypt. Any MAC failure or malformed input is
// reported as ErrIntegrity; it never returns a plaintext it cannot
// authenticate.
func (s *Sealer) Decrypt(ciphertext, salt []byte) ([]byte, error) {
	gcm, err := s.gcmFor(salt)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcmNonceSize+gcm.Overhead() {
		return nil, ErrIntegrity
	}

	nonce, sealed := ciphertext[:gcmNonceSize], ciphertext[gcmNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

func (s *Sealer) gcmFor(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(s.passphrase), salt, s.iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: build cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: build GCM: %w", err)
	}
	return gcm, nil
}

// HashBytes returns the hex-encoded SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

// HashFile returns the hex-encoded SHA-256 digest of the file at path,
// reading in bounded chunks so hashing a large file does not require
// loading it fully into memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("crypto: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("crypto: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
