package inventory

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
)

// ChunkSize is the fingerprint block size. Changing it changes every fingerprint.
const ChunkSize = 8 * 1024

// Fingerprint folds the 64-bit FNV-1a hash of each ChunkSize block of r into
// one value with XOR. The final block may be short. This is the value the
// update server compares against; it is weak and order-insensitive across
// whole blocks, and must not be replaced with a stronger hash on this side
// alone.
func Fingerprint(r io.Reader) (uint64, int64, error) {
	buf := make([]byte, ChunkSize)
	h := fnv.New64a()

	var (
		acc   uint64
		total int64
	)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			h.Reset()
			h.Write(buf[:n])
			acc ^= h.Sum64()
			total += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return acc, total, nil
		}
		if err != nil {
			return 0, total, fmt.Errorf("read chunk: %w", err)
		}
	}
}

// FingerprintFile opens path and fingerprints its content.
func FingerprintFile(path string) (uint64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, size, err := Fingerprint(f)
	if err != nil {
		return 0, 0, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return sum, size, nil
}
