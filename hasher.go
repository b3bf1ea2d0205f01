package users

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hasherIterations = 10000
	hasherKeyLength  = 64
)

// DigestHasher is the default Hasher: a PBKDF2-SHA512 keyed digest with the
// salt supplied by the caller. Output is deterministic for a given
// (plaintext, salt) pair, which is what the credential comparison relies on.
type DigestHasher struct {
	iterations int
	keyLength  int
}

func NewHasher() *DigestHasher {
	return &DigestHasher{
		iterations: hasherIterations,
		keyLength:  hasherKeyLength,
	}
}

func (h *DigestHasher) Hash(plain, salt string) (string, error) {
	if plain == "" {
		return "", ErrNoEmptyString
	}

	key := pbkdf2.Key([]byte(plain), []byte(salt), h.iterations, h.keyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

func (h *DigestHasher) Matches(plain, encoded, salt string) bool {
	computed, err := h.Hash(plain, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encoded)) == 1
}

var _ Hasher = (*DigestHasher)(nil)
