package autofilter

// Batch is the ephemeral, per-minute accumulation of request load, last-seen
// country, and last-seen user-agent per client IP. It is cleared
// atomically by NewBatch after every flush; there is never more than one
// live Batch at a time.
type Batch struct {
	Load      map[string]int64
	Country   map[string]string
	UserAgent map[string]string
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{
		Load:      make(map[string]int64),
		Country:   make(map[string]string),
		UserAgent: make(map[string]string),
	}
}

// Add accumulates one classified request's weight into the batch and
// records its country and user-agent as the most recent seen for that IP
// this minute.
func (b *Batch) Add(ip string, weight int64, country, userAgent string) {
	b.Load[ip] += weight
	b.Country[ip] = country
	b.UserAgent[ip] = userAgent
}

// IPs returns the set of client IPs with any observed traffic this minute,
// materialized up front so a caller can safely mutate unrelated state (such
// as the ledger) while iterating it.
func (b *Batch) IPs() []string {
	ips := make([]string, 0, len(b.Load))
	for ip := range b.Load {
		ips = append(ips, ip)
	}
	return ips
}

// MinuteBatcher tracks the current 16-character minute prefix of the log
// stream and reports when it advances. Flushing happens on the stream's
// own timestamps, not wall-clock — a long gap between log lines delays the
// next flush until a line with a new prefix arrives.
type MinuteBatcher struct {
	current string
	started bool
}

// Observe records one record's minute prefix. It returns the previous
// prefix and true when prefix differs from the current one, which happens
// on the first record of a new minute — i.e. when the caller should flush the
// batch accumulated under the previous prefix before accumulating this
// record into a fresh one.
func (m *MinuteBatcher) Observe(prefix string) (previous string, shouldFlush bool) {
	if !m.started {
		m.current = prefix
		m.started = true
		return "", false
	}
	if prefix == m.current {
		return "", false
	}
	previous = m.current
	m.current = prefix
	return previous, true
}
