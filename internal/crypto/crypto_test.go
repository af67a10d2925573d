package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s := NewSealer("pw", 0)
	plaintext := []byte("hello world!")

	ciphertext, salt, err := s.Encrypt(plaintext)
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	got, err := s.Decrypt(ciphertext, salt)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealerRejectsWrongSalt(t *testing.T) {
	s := NewSealer("pw", 0)
	ciphertext, _, err := s.Encrypt([]byte("hello world!"))
	require.NoError(t, err)

	wrongSalt := make([]byte, SaltSize)
	_, err = s.Decrypt(ciphertext, wrongSalt)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestSealerRejectsTamperedCiphertext(t *testing.T) {
	s := NewSealer("pw", 0)
	ciphertext, salt, err := s.Encrypt([]byte("hello world!"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = s.Decrypt(tampered, salt)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestSealerDistinctSaltsPerCall(t *testing.T) {
	s := NewSealer("pw", 0)
	_, salt1, err := s.Encrypt([]byte("a"))
	require.NoError(t, err)
	_, salt2, err := s.Encrypt([]byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, salt1, salt2)
}

func TestHashBytesIsDeterministicAndHex(t *testing.T) {
	got := HashBytes([]byte("hello world!"))
	assert.Len(t, got, 64)
	assert.Equal(t, got, HashBytes([]byte("hello world!")))
	assert.NotEqual(t, got, HashBytes([]byte("hello world!!")))
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	content := []byte("hello world!")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(content), got)
}
