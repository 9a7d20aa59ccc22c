package autofilter

import "fmt"

// ConfigError indicates a defect in the policy or daemon configuration that
// must be fixed before the daemon can start.
type ConfigError struct {
	File   string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.File, e.Reason)
}

// ParseError indicates a single access-log line did not match the expected
// field layout. It is never fatal; the daemon loop logs it and continues.
type ParseError struct {
	Line   string
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("unparseable log line (%s): %q", e.Reason, e.Line)
}

// FCrDNSError describes why a forward-confirmed reverse-DNS check failed,
// either because a DNS lookup errored or because the forward and reverse
// lookups disagreed. Its text is embedded verbatim in the ledger annotation
// for a blocked IP.
type FCrDNSError struct {
	IP     string
	Reason string
}

func (e FCrDNSError) Error() string {
	return fmt.Sprintf("fcrdns failed for %s: %s", e.IP, e.Reason)
}
