package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Mmx233/PatchSync/protocol"
	"github.com/rs/zerolog"
)

// Patch archive naming
const (
	PatchPrefix = "patch-"
	PatchSuffix = ".mpq"

	// localeNameLen is the length of per-locale archives such as patch-3.mpq
	localeNameLen = len(PatchPrefix) + 1 + len(PatchSuffix)
)

// PatchFileRecord is one local patch archive.
type PatchFileRecord struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	Fingerprint uint64 `json:"fingerprint"`
}

// IsPatchArchive reports whether name takes part in patch reconciliation.
// Per-locale archives (patch-1.mpq .. patch-9.mpq) are managed elsewhere and excluded.
func IsPatchArchive(name string) bool {
	if !strings.HasPrefix(name, PatchPrefix) || !strings.HasSuffix(name, PatchSuffix) {
		return false
	}
	if len(name) == localeNameLen {
		c := name[len(PatchPrefix)]
		if c >= '1' && c <= '9' {
			return false
		}
	}
	return true
}

// Scanner builds PatchFileRecord lists for one data directory.
type Scanner struct {
	dir    string
	logger zerolog.Logger
}

// NewScanner creates a Scanner for dir.
func NewScanner(dir string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		logger: logger.With().Str("component", "inventory").Str("dir", dir).Logger(),
	}
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan lists patch archives in the directory, non-recursively, sorted by name.
// A missing directory yields an empty list. Files that can not be read are skipped.
func (s *Scanner) Scan() ([]PatchFileRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Msg("data directory does not exist, reporting empty inventory")
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var records []PatchFileRecord
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !IsPatchArchive(name) {
			continue
		}

		sum, size, err := FingerprintFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable patch archive")
			continue
		}

		records = append(records, PatchFileRecord{
			Filename:    name,
			Size:        size,
			Fingerprint: sum,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Filename < records[j].Filename
	})

	s.logger.Debug().Int("files", len(records)).Msg("inventory scanned")
	return records, nil
}

// EncodeRequest renders the CHECK_PATCHES request for records:
// a header line, one "filename|fingerprint|" line per file, then the sentinel.
func EncodeRequest(records []PatchFileRecord) []byte {
	buf := protocol.GetBufferWithSize(32 * (len(records) + 1))
	defer protocol.PutBuffer(buf)

	buf.WriteString(protocol.CmdCheckPatches)
	buf.WriteString(protocol.FieldSeparator)
	buf.WriteByte('\n')
	for _, r := range records {
		buf.WriteString(r.Filename)
		buf.WriteString(protocol.FieldSeparator)
		buf.WriteString(strconv.FormatUint(r.Fingerprint, 10))
		buf.WriteString(protocol.FieldSeparator)
		buf.WriteByte('\n')
	}

	return protocol.AppendFrame(nil, buf.Bytes())
}
