// Package checksum computes content digests for project files.
//
// Digests depend only on file bytes. Paths, modification times and
// permissions never contribute, so two files with identical content always
// share a digest.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrIO indicates the file could not be opened or read.
var ErrIO = errors.New("checksum: io error")

// Digest is a lowercase hex-encoded sha256 sum.
type Digest string

// String implements fmt.Stringer.
func (d Digest) String() string {
	return string(d)
}

// Short returns the first n characters of the digest, or the whole digest
// when it is shorter than n.
func (d Digest) Short(n int) string {
	if n <= 0 || n >= len(d) {
		return string(d)
	}
	return string(d[:n])
}

// Bytes returns the digest of in-memory content.
func Bytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// File streams the file at path through sha256.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	return Reader(f)
}

// Reader digests everything readable from r.
func Reader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// Parse normalises a digest read back from disk. Surrounding whitespace is
// ignored so hand-edited checksum files with a trailing newline still match.
func Parse(s string) Digest {
	return Digest(strings.ToLower(strings.TrimSpace(s)))
}
