// Package apikey implements generation and verification of Quire API keys.
//
// A key is the literal tag "qre_" followed by a URL-safe encoding of
// cryptographically secure random bytes, truncated to a fixed length so
// every emitted key has the same total length. The public prefix (tag +
// first 8 encoded characters) is stored as a non-secret lookup index;
// the secret hash is a SHA-256 hex digest of the full plaintext key.
//
// The prefix carries 8 base64url characters, about 48 bits of entropy,
// so two independently generated keys collide on their prefix with
// probability ~2^-48 per pair. A collision is still handled at insert
// time by the unique index on public_prefix.
//
// Everything here is pure computation: no I/O, no logging, no clock.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Tag is the literal prefix every Quire API key starts with.
	Tag = "qre_"

	// PrefixLen is the number of encoded characters after the tag that
	// form the public prefix together with the tag.
	PrefixLen = 8

	// DefaultSecretLen is the number of random bytes in a generated key.
	DefaultSecretLen = 32

	// minSecretLen guards against configurations that would emit keys
	// with less entropy than the public prefix exposes.
	minSecretLen = 16
)

// Key is the result of Generate. Plaintext is handed to the caller
// exactly once; only PublicPrefix and SecretHash may be persisted.
type Key struct {
	Plaintext    string
	PublicPrefix string
	SecretHash   string
}

// Generate produces a fresh API key from secretLen bytes of
// cryptographically secure randomness. secretLen <= 0 uses
// DefaultSecretLen; values below the minimum are rejected.
func Generate(secretLen int) (Key, error) {
	if secretLen <= 0 {
		secretLen = DefaultSecretLen
	}
	if secretLen < minSecretLen {
		return Key{}, fmt.Errorf("api key secret length %d below minimum %d", secretLen, minSecretLen)
	}

	buf := make([]byte, secretLen)
	if _, err := rand.Read(buf); err != nil {
		return Key{}, fmt.Errorf("reading randomness: %w", err)
	}

	// Truncate the encoded body to a fixed length so the emitted key has
	// deterministic total length regardless of encoder padding behavior.
	body := base64.RawURLEncoding.EncodeToString(buf)
	body = body[:base64.RawURLEncoding.EncodedLen(secretLen)]

	plaintext := Tag + body
	prefix, ok := PrefixOf(plaintext)
	if !ok {
		return Key{}, fmt.Errorf("generated key shorter than prefix")
	}

	return Key{
		Plaintext:    plaintext,
		PublicPrefix: prefix,
		SecretHash:   Hash(plaintext),
	}, nil
}

// PrefixOf extracts the public prefix from a candidate key using the
// single slicing rule shared by generation, verification, and the
// registry lookup. It reports false for candidates that do not carry the
// tag or are too short to hold a prefix.
func PrefixOf(candidate string) (string, bool) {
	if !strings.HasPrefix(candidate, Tag) || len(candidate) < len(Tag)+PrefixLen {
		return "", false
	}
	return candidate[:len(Tag)+PrefixLen], true
}

// Hash returns the lowercase hex SHA-256 digest of the full plaintext key.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify checks a candidate key against a stored record.
//
// The prefix check is a cheap pre-filter, not a security boundary: the
// prefix is not secret. Candidates that fail it are rejected before any
// hashing. The final hash comparison is constant-time.
func Verify(candidate, storedPrefix, storedHash string) bool {
	prefix, ok := PrefixOf(candidate)
	if !ok {
		return false
	}
	if prefix != storedPrefix {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(candidate)), []byte(storedHash)) == 1
}
