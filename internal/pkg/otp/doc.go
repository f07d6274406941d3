// Package otp generates short numeric one-time codes.
//
// Codes are drawn digit by digit from crypto/rand so every position is
// uniform over 0-9 and independent of previous outputs. Storage, expiry and
// single-use semantics belong to the caller.
package otp
