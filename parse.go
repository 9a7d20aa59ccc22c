package autofilter

import "strings"

// fieldCount is the number of tab-delimited fields the core cares about.
// Additional trailing fields are ignored.
const fieldCount = 11

// Record is one parsed access-log line.
type Record struct {
	Time      string // time_iso8601
	Country   string
	IP        string
	Scheme    string
	Host      string
	Method    string
	URI       string
	Status    string
	Bytes     string
	Referer   string
	UserAgent string
}

// ParseLine extracts the fixed, tab-delimited fields from one access-log
// line. A line with fewer than the expected fields is a ParseError; the
// caller logs it and continues rather than treating it as fatal.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < fieldCount {
		return Record{}, ParseError{Line: line, Reason: "field count mismatch"}
	}
	r := Record{
		Time:      fields[0],
		Country:   fields[1],
		IP:        fields[2],
		Scheme:    fields[3],
		Host:      fields[4],
		Method:    fields[5],
		URI:       unquote(fields[6]),
		Status:    fields[7],
		Bytes:     fields[8],
		Referer:   unquote(fields[9]),
		UserAgent: unquote(fields[10]),
	}
	if r.IP == "" || r.Time == "" {
		return Record{}, ParseError{Line: line, Reason: "missing ip or timestamp"}
	}
	return r, nil
}

// MinutePrefix returns the leading 16 characters of an ISO-8601 timestamp,
// the minute-precision bucket key used by the batcher.
func (r Record) MinutePrefix() string {
	if len(r.Time) < 16 {
		return r.Time
	}
	return r.Time[:16]
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
