package hash

// Hash computes and verifies digests of plaintext secrets.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
