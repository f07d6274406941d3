// Package hash provides keyed one-way digests for short-lived secrets.
//
// Digests are deterministic so a stored value can be looked up by the digest of
// user input, and compared in constant time.
package hash
