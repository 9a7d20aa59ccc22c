package autofilter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// blockUntilLayout is the second-precision, timezone-free layout block
// records are serialized with.
const blockUntilLayout = "2006-01-02T15:04:05"

// BlockRecord is one persisted block-ledger entry.
type BlockRecord struct {
	IP         string
	BlockUntil int64 // epoch seconds, local time on disk
	Country    string
	PeakLoad   int64
	Annotation string
}

// Ledger is the on-disk, atomically-rewritten set of currently blocked
// IPs, shared with the HTTP server. Writes go to a sibling temp file with
// a unique-random-suffix name built with uuid, rather than a content hash,
// since the ledger's temp name need not be stable across writes, then get
// renamed into place so a concurrent reader never observes a partial file.
type Ledger struct {
	Path string

	lastExpiredCount int
}

// NewLedger returns a ledger backed by the given file path.
func NewLedger(path string) *Ledger {
	return &Ledger{Path: path}
}

// Read loads and expires the ledger. A missing file is an empty
// ledger, not an error. A malformed line is skipped with a diagnostic
// rather than failing the whole read.
func (l *Ledger) Read(now time.Time) (map[string]BlockRecord, error) {
	records := make(map[string]BlockRecord)

	f, err := os.Open(l.Path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return records, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseBlockRecord(line)
		if err != nil {
			Log.WithError(err).Warn("skipping unparseable ledger line")
			continue
		}
		records[rec.IP] = rec
	}

	// Materialize the key set before deleting, rather than mutating the
	// map while ranging over it.
	expired := make([]string, 0)
	for ip, rec := range records {
		if rec.BlockUntil <= now.Unix() {
			expired = append(expired, ip)
		}
	}
	for _, ip := range expired {
		delete(records, ip)
	}
	l.lastExpiredCount = len(expired)

	return records, nil
}

// LastExpiredCount reports how many records the most recent Read dropped
// for having passed their block_until, for the daemon's expiry counter.
func (l *Ledger) LastExpiredCount() int {
	return l.lastExpiredCount
}

// Write serializes records to a sibling temp file with a unique random
// suffix and atomically renames it over the canonical ledger path, so
// concurrent readers (the HTTP server, at reload) never observe a partial
// file.
func (l *Ledger) Write(records map[string]BlockRecord) (err error) {
	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(l.Path), uuid.New().String()))
	f, ferr := os.Create(tmpPath)
	if ferr != nil {
		return ferr
	}

	list := sortedRecords(records)
	w := bufio.NewWriter(f)
	for _, rec := range list {
		if _, err := w.WriteString(formatBlockRecord(rec) + "\n"); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	defer func() {
		os.Remove(tmpPath)
	}()
	if err = w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, l.Path)
}

// sortedRecords orders records by load descending, then IP.
func sortedRecords(records map[string]BlockRecord) []BlockRecord {
	list := make([]BlockRecord, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].PeakLoad != list[j].PeakLoad {
			return list[i].PeakLoad > list[j].PeakLoad
		}
		return list[i].IP < list[j].IP
	})
	return list
}

func formatBlockRecord(r BlockRecord) string {
	blockUntil := time.Unix(r.BlockUntil, 0).Format(blockUntilLayout)
	return fmt.Sprintf("%45s 1; # %s %10d %s %s", r.IP, r.Country, r.PeakLoad, blockUntil, r.Annotation)
}

func parseBlockRecord(line string) (BlockRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 || fields[1] != "1;" || fields[2] != "#" {
		return BlockRecord{}, fmt.Errorf("malformed ledger line: %q", line)
	}
	load, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return BlockRecord{}, fmt.Errorf("invalid load in ledger line: %q", line)
	}
	blockUntil, err := time.ParseInLocation(blockUntilLayout, fields[5], time.Local)
	if err != nil {
		return BlockRecord{}, fmt.Errorf("invalid block_until in ledger line: %q", line)
	}
	annotation := ""
	if len(fields) > 6 {
		annotation = strings.Join(fields[6:], " ")
	}
	return BlockRecord{
		IP:         fields[0],
		Country:    fields[3],
		PeakLoad:   load,
		BlockUntil: blockUntil.Unix(),
		Annotation: annotation,
	}, nil
}
