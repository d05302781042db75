package inventory

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0644))
}

func TestIsPatchArchive(t *testing.T) {
	cases := map[string]bool{
		"patch-1.mpq":     false,
		"patch-9.mpq":     false,
		"patch-0.mpq":     true,
		"patch-A.mpq":     true,
		"patch-base.mpq":  true,
		"patch-10.mpq":    true,
		"patch-1.MPQ":     false,
		"Patch-A.mpq":     false,
		"patch-A.mpq.bak": false,
		"common.mpq":      false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsPatchArchive(name), name)
	}
	assert.Equal(t, len("patch-1.mpq"), localeNameLen)
}

func TestFingerprint_KnownValues(t *testing.T) {
	sum, size, err := Fingerprint(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sum)
	assert.Equal(t, int64(0), size)

	// FNV-1a 64 of "a"
	sum, size, err = Fingerprint(strings.NewReader("a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xaf63dc4c8601ec8c), sum)
	assert.Equal(t, int64(1), size)
}

func TestFingerprint_IdenticalChunksCancel(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x5A}, ChunkSize)
	sum, size, err := Fingerprint(bytes.NewReader(append(append([]byte{}, chunk...), chunk...)))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sum)
	assert.Equal(t, int64(2*ChunkSize), size)
}

func TestFingerprint_ShortTrailingChunk(t *testing.T) {
	data := bytes.Repeat([]byte("xyz"), ChunkSize) // 3 chunks exactly
	data = append(data, 'q')

	full, _, err := Fingerprint(bytes.NewReader(data[:3*ChunkSize]))
	require.NoError(t, err)
	tail, _, err := Fingerprint(bytes.NewReader([]byte("q")))
	require.NoError(t, err)

	sum, size, err := Fingerprint(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, full^tail, sum)
	assert.Equal(t, int64(len(data)), size)
}

// Property: the fingerprint is deterministic and invariant to permutation of
// whole chunks.
func TestFingerprintChunkPermutation_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "chunks")
		chunks := make([][]byte, n)
		for i := range chunks {
			seed := rapid.Byte().Draw(t, "seed")
			chunks[i] = bytes.Repeat([]byte{seed, seed ^ 0x33}, ChunkSize/2)
		}
		perm := rapid.Permutation(chunks).Draw(t, "perm")

		a, _, err := Fingerprint(bytes.NewReader(bytes.Join(chunks, nil)))
		if err != nil {
			t.Fatal(err)
		}
		again, _, err := Fingerprint(bytes.NewReader(bytes.Join(chunks, nil)))
		if err != nil {
			t.Fatal(err)
		}
		b, _, err := Fingerprint(bytes.NewReader(bytes.Join(perm, nil)))
		if err != nil {
			t.Fatal(err)
		}
		if a != again {
			t.Fatalf("fingerprint not deterministic: %d != %d", a, again)
		}
		if a != b {
			t.Fatalf("permuted chunks changed fingerprint: %d != %d", a, b)
		}
	})
}

func TestScanner_Scan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"patch-1.mpq", "patch-9.mpq", "patch-A.mpq", "patch-base.mpq", "readme.txt", "patch-0.mpq"} {
		writeFile(t, dir, name, []byte(name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "patch-dir.mpq"), 0755))

	records, err := NewScanner(dir, zerolog.Nop()).Scan()
	require.NoError(t, err)

	var names []string
	for _, r := range records {
		names = append(names, r.Filename)
		assert.Equal(t, int64(len(r.Filename)), r.Size)

		want, _, err := Fingerprint(strings.NewReader(r.Filename))
		require.NoError(t, err)
		assert.Equal(t, want, r.Fingerprint)
	}
	assert.Equal(t, []string{"patch-0.mpq", "patch-A.mpq", "patch-base.mpq"}, names)
}

func TestScanner_MissingDirectory(t *testing.T) {
	records, err := NewScanner(filepath.Join(t.TempDir(), "Data"), zerolog.Nop()).Scan()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEncodeRequest(t *testing.T) {
	req := EncodeRequest([]PatchFileRecord{
		{Filename: "patch-A.mpq", Fingerprint: 42},
		{Filename: "patch-base.mpq", Fingerprint: 0xaf63dc4c8601ec8c},
	})
	assert.Equal(t,
		"CHECK_PATCHES|\npatch-A.mpq|42|\npatch-base.mpq|12638187200555641996|\n<END_OF_MESSAGE>",
		string(req))

	assert.Equal(t, "CHECK_PATCHES|\n<END_OF_MESSAGE>", string(EncodeRequest(nil)))
}
