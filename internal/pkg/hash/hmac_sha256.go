package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/hkdf"
)

// ErrEmptySecret is returned by NewHMACSHA256 when secret is blank.
var ErrEmptySecret = errors.New("hash: secret must not be empty")

// HMACSHA256 digests short secrets such as one-time codes. Digests are
// lowercase hex so they can be stored and compared as text.
type HMACSHA256 struct {
	key []byte
}

// NewHMACSHA256 keys the digest with HKDF-SHA256(secret, label). Callers use
// a distinct label per purpose so one leaked digest set says nothing about
// another.
func NewHMACSHA256(secret, label string) (*HMACSHA256, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key, err := hkdfKey(secret, label)
	if err != nil {
		return nil, err
	}
	return &HMACSHA256{key: key}, nil
}

func hkdfKey(secret, label string) ([]byte, error) {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(label))
	if _, err := r.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *HMACSHA256) Hash(str string) ([]byte, error) { return s.digest(str), nil }

// Verify compares in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	return hmac.Equal([]byte(hashed), s.digest(str))
}

func (s *HMACSHA256) digest(str string) []byte {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write([]byte(str))
	return hex.AppendEncode(nil, mac.Sum(nil))
}
