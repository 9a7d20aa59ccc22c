package autofilter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedgerMissingFileIsEmpty(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "nonexistent.blocked"))
	records, err := l.Read(time.Now())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestLedgerWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.hosts")
	l := NewLedger(path)

	now := time.Now().Truncate(time.Second)
	in := map[string]BlockRecord{
		"203.0.113.5": {
			IP:         "203.0.113.5",
			Country:    "CN",
			PeakLoad:   450,
			BlockUntil: now.Add(time.Hour).Unix(),
			Annotation: "over ALL limit",
		},
	}

	require.NoError(t, l.Write(in))

	out, err := l.Read(now)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out["203.0.113.5"]
	require.Equal(t, "203.0.113.5", got.IP)
	require.Equal(t, "CN", got.Country)
	require.Equal(t, int64(450), got.PeakLoad)
	require.Equal(t, "over ALL limit", got.Annotation)
	require.Equal(t, in["203.0.113.5"].BlockUntil, got.BlockUntil)
}

func TestLedgerWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocked.hosts")
	l := NewLedger(path)

	require.NoError(t, l.Write(map[string]BlockRecord{
		"1.2.3.4": {IP: "1.2.3.4", Country: "US", PeakLoad: 1, BlockUntil: time.Now().Add(time.Minute).Unix()},
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "blocked.hosts", entries[0].Name())
}

func TestLedgerReadExpiresStaleRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.hosts")
	l := NewLedger(path)

	now := time.Now().Truncate(time.Second)
	require.NoError(t, l.Write(map[string]BlockRecord{
		"1.1.1.1": {IP: "1.1.1.1", Country: "US", PeakLoad: 10, BlockUntil: now.Add(-time.Minute).Unix()},
		"2.2.2.2": {IP: "2.2.2.2", Country: "US", PeakLoad: 20, BlockUntil: now.Add(time.Hour).Unix()},
	}))

	out, err := l.Read(now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, stillBlocked := out["2.2.2.2"]
	require.True(t, stillBlocked)
	_, expired := out["1.1.1.1"]
	require.False(t, expired)
}

func TestLedgerWriteOrdersByLoadDescendingThenIP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.hosts")
	l := NewLedger(path)

	future := time.Now().Add(time.Hour).Unix()
	require.NoError(t, l.Write(map[string]BlockRecord{
		"9.9.9.9": {IP: "9.9.9.9", Country: "US", PeakLoad: 100, BlockUntil: future},
		"1.1.1.1": {IP: "1.1.1.1", Country: "US", PeakLoad: 200, BlockUntil: future},
		"2.2.2.2": {IP: "2.2.2.2", Country: "US", PeakLoad: 200, BlockUntil: future},
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(raw))
	require.Len(t, lines, 3)

	ip1, err1 := parseBlockRecord(lines[0])
	require.NoError(t, err1)
	require.Equal(t, "1.1.1.1", ip1.IP)

	ip2, err2 := parseBlockRecord(lines[1])
	require.NoError(t, err2)
	require.Equal(t, "2.2.2.2", ip2.IP)

	ip3, err3 := parseBlockRecord(lines[2])
	require.NoError(t, err3)
	require.Equal(t, "9.9.9.9", ip3.IP)
}

func TestLedgerSkipsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.hosts")
	require.NoError(t, os.WriteFile(path, []byte("this is not a ledger line\n"), 0o644))

	l := NewLedger(path)
	out, err := l.Read(time.Now())
	require.NoError(t, err)
	require.Empty(t, out)
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if line := s[start:i]; len(line) > 0 {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
