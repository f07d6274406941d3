package otp

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// ErrInvalidLength is returned when a code of zero or negative length is requested.
var ErrInvalidLength = errors.New("otp: code length must be positive")

// Generator produces fixed-length numeric codes.
type Generator interface {
	// Generate returns a code made of length decimal digits.
	Generate(length int) (string, error)
}

// Numeric implements Generator on top of a cryptographic random source.
type Numeric struct {
	source io.Reader
}

// NewNumeric returns a Numeric generator reading from crypto/rand.
func NewNumeric() *Numeric {
	return &Numeric{source: rand.Reader}
}

var ten = big.NewInt(10)

// Generate returns length digits, each uniform over 0-9.
func (n *Numeric) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	code := make([]byte, length)
	for i := range code {
		d, err := rand.Int(n.source, ten)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + d.Int64())
	}

	return string(code), nil
}
