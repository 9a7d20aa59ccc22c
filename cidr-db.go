package autofilter

import "net"

// cidrTable holds a set of networks pre-sorted by descending prefix length,
// so the first network that contains a given IP is the longest (most
// specific) match. Built once from a Policy's CIDR limit entities and never
// mutated afterwards — the policy file is loaded once at startup and never
// refreshed.
type cidrTable struct {
	entries []cidrLimit
}

// newCIDRTable builds a table from already-parsed, descending-prefix-sorted
// entries.
func newCIDRTable(entries []cidrLimit) cidrTable {
	return cidrTable{entries: entries}
}

// match returns the limit of the first (longest-prefix) network containing
// ip, and whether any network matched.
func (t cidrTable) match(ip net.IP) (int64, bool) {
	for _, e := range t.entries {
		if e.network.Contains(ip) {
			return e.limit, true
		}
	}
	return 0, false
}
