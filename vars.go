package autofilter

import (
	"expvar"
	"fmt"
)

// getVarInt returns the *expvar.Int at the given path, creating it if this
// is the first call for that path. Safe to call repeatedly, e.g. once per
// Daemon instance in tests, without panicking on a duplicate registration.
func getVarInt(name string) *expvar.Int {
	fullname := fmt.Sprintf("autofilter.%s", name)
	if v := expvar.Get(fullname); v != nil {
		return v.(*expvar.Int)
	}
	return expvar.NewInt(fullname)
}

// Counters holds the expvar counters published by the daemon's admin
// listener (see AdminListener). All fields are safe for concurrent use.
type Counters struct {
	LinesProcessed    *expvar.Int
	MinutesFlushed    *expvar.Int
	LinesUnparsed     *expvar.Int
	IPsBlocked        *expvar.Int
	IPsExpired        *expvar.Int
	FCrDNSAttempts    *expvar.Int
	FCrDNSPasses      *expvar.Int
	FCrDNSFailures    *expvar.Int
	ReloadsSent       *expvar.Int
	ReloadsSuppressed *expvar.Int
}

// NewCounters creates (or re-fetches, if already published under these
// names) the full set of daemon counters.
func NewCounters() *Counters {
	return &Counters{
		LinesProcessed:    getVarInt("lines_processed"),
		MinutesFlushed:    getVarInt("minutes_flushed"),
		LinesUnparsed:     getVarInt("lines_unparsed"),
		IPsBlocked:        getVarInt("ips_blocked"),
		IPsExpired:        getVarInt("ips_expired"),
		FCrDNSAttempts:    getVarInt("fcrdns_attempts"),
		FCrDNSPasses:      getVarInt("fcrdns_passes"),
		FCrDNSFailures:    getVarInt("fcrdns_failures"),
		ReloadsSent:       getVarInt("reloads_sent"),
		ReloadsSuppressed: getVarInt("reloads_suppressed"),
	}
}
