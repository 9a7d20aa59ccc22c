package autofilter

import (
	"sort"
	"strings"
	"time"
)

// minReloadInterval is the default floor between reload signals, overridden
// by the daemon config's reload.min_interval_seconds.
const minReloadInterval = 60 * time.Second

// ReloadSignaler tracks when the HTTP server last reloaded the block ledger
// and which IPs it last saw, so the daemon loop only signals it when the
// membership has actually changed and the reload budget allows it.
type ReloadSignaler struct {
	Pidfile      string
	MinInterval  time.Duration
	lastReload   time.Time
	lastMembers  string
	hasSignaled  bool
	signalReload func(pidfile string) error
}

// NewReloadSignaler returns a signaler targeting the HTTP server's pidfile.
// A zero minInterval defaults to 60 seconds.
func NewReloadSignaler(pidfile string, minInterval time.Duration) *ReloadSignaler {
	if minInterval == 0 {
		minInterval = minReloadInterval
	}
	return &ReloadSignaler{
		Pidfile:      pidfile,
		MinInterval:  minInterval,
		signalReload: SignalReload,
	}
}

// MaybeSignal sends a reload signal if at least MinInterval has elapsed
// since the last one and the given block-set membership differs from what
// was last reloaded. It returns true if a signal was sent. Before the first
// signal of the process lifetime, lastReload is the zero time, so the
// interval condition is trivially satisfied and only membership matters.
func (s *ReloadSignaler) MaybeSignal(now time.Time, members []string) (bool, error) {
	key := membershipKey(members)

	if s.hasSignaled && now.Sub(s.lastReload) < s.MinInterval {
		return false, nil
	}
	if key == s.lastMembers {
		return false, nil
	}

	if err := s.signalReload(s.Pidfile); err != nil {
		return false, err
	}
	s.lastReload = now
	s.lastMembers = key
	s.hasSignaled = true
	return true, nil
}

func membershipKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
