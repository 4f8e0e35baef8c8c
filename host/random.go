package host

import (
	"crypto/rand"
	"io"
	mrand "math/rand"
)

// MaxRandomBytes is the largest buffer crypto.getRandomValues fills in one call.
const MaxRandomBytes = 65536

// SecureRandom returns the default randomness source.
func SecureRandom() io.Reader {
	return rand.Reader
}

// SeededRandom returns a deterministic source for reproducible runs.
func SeededRandom(seed int64) io.Reader {
	return mrand.New(mrand.NewSource(seed)) //nolint:gosec // deterministic by request
}

// FillRandom fills p from r.
func FillRandom(r io.Reader, p []byte) error {
	_, err := io.ReadFull(r, p)
	return err
}
