package autofilter

import (
	"bufio"
	"fmt"
	"math"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
)

// entityAll is the sentinel entity matching every client not otherwise
// covered by a more specific rule.
const entityAll = "ALL"

// unlimited is the ceiling substituted for the "none" limit value.
const unlimited = math.MaxInt64

// minCeiling is the smallest rate ceiling LoadPolicy will accept.
const minCeiling = 60

// cidrLimit pairs a parsed network with the limit that applies within it.
// Policy.LimitCIDR is kept sorted by descending prefix length so the first
// network containing a given IP is the longest (most specific) match.
type cidrLimit struct {
	entity  string
	network *net.IPNet
	limit   int64
}

// Policy holds the rate ceilings and block durations read from a policy
// file. It is immutable once loaded: it is built once at startup and
// shared, read-only, by every later lookup.
type Policy struct {
	Limit     map[string]int64
	Block     map[string]int64 // seconds
	LimitCIDR []cidrLimit
	cidr      cidrTable
}

// LoadPolicy parses a policy file into a Policy. The directive grammar
// is "limit <entity> <int|none>" and "block <entity>
// <n>{h|d}", one directive per line, "#" comments, tabs equivalent to
// spaces.
func LoadPolicy(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	limit := make(map[string]int64)
	block := make(map[string]int64)
	seenLimit := make(map[string]bool)
	seenBlock := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.ReplaceAll(line, "\t", " ")
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, ConfigError{File: path, Reason: fmt.Sprintf("malformed directive: %q", line)}
		}
		directive, entity, value := fields[0], normalizeEntity(fields[1]), fields[2]

		switch directive {
		case "limit":
			if seenLimit[entity] {
				return nil, ConfigError{File: path, Reason: fmt.Sprintf("duplicate limit entity: %s", entity)}
			}
			seenLimit[entity] = true
			n, err := parseCeiling(value)
			if err != nil {
				return nil, ConfigError{File: path, Reason: err.Error()}
			}
			limit[entity] = n
		case "block":
			if seenBlock[entity] {
				return nil, ConfigError{File: path, Reason: fmt.Sprintf("duplicate block entity: %s", entity)}
			}
			seenBlock[entity] = true
			secs, err := parseDuration(value)
			if err != nil {
				return nil, ConfigError{File: path, Reason: err.Error()}
			}
			block[entity] = secs
		default:
			return nil, ConfigError{File: path, Reason: fmt.Sprintf("unrecognised directive: %s", directive)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ConfigError{File: path, Reason: err.Error()}
	}

	if _, ok := limit[entityAll]; !ok {
		limit[entityAll] = 600
	}
	if _, ok := block[entityAll]; !ok {
		block[entityAll] = 24 * 3600
	}

	p := &Policy{Limit: limit, Block: block}
	for entity, l := range limit {
		if !strings.Contains(entity, "/") {
			continue
		}
		_, network, err := net.ParseCIDR(entity)
		if err != nil {
			return nil, ConfigError{File: path, Reason: fmt.Sprintf("invalid CIDR entity %q: %v", entity, err)}
		}
		p.LimitCIDR = append(p.LimitCIDR, cidrLimit{entity: entity, network: network, limit: l})
	}
	sort.SliceStable(p.LimitCIDR, func(i, j int) bool {
		si, _ := p.LimitCIDR[i].network.Mask.Size()
		sj, _ := p.LimitCIDR[j].network.Mask.Size()
		return si > sj
	})
	p.cidr = newCIDRTable(p.LimitCIDR)

	return p, nil
}

// normalizeEntity uppercases an entity key, except for ones containing ':'
// (IPv6 addresses and CIDRs), which are left as-is since the directive line
// was already lowercased. CIDR entities without letters (plain IPv4) are
// unaffected either way.
func normalizeEntity(e string) string {
	if strings.Contains(e, ":") {
		return e
	}
	return strings.ToUpper(e)
}

func parseCeiling(value string) (int64, error) {
	if value == "none" {
		return unlimited, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid limit value: %q", value)
	}
	if n < minCeiling {
		return 0, fmt.Errorf("limit ceiling below minimum of %d: %d", minCeiling, n)
	}
	return n, nil
}

// parseDuration converts a "<n>h" or "<n>d" string into seconds.
func parseDuration(value string) (int64, error) {
	if len(value) < 2 {
		return 0, fmt.Errorf("invalid block duration: %q", value)
	}
	suffix := value[len(value)-1]
	var unit int64
	switch suffix {
	case 'h':
		unit = 3600
	case 'd':
		unit = 24 * 3600
	default:
		return 0, fmt.Errorf("invalid block duration suffix in %q", value)
	}
	n, err := strconv.ParseInt(value[:len(value)-1], 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid block duration: %q", value)
	}
	return n * unit, nil
}

// ResolveLimit applies the cascading lookup: exact IP, then longest-prefix
// CIDR, then country, then ALL.
func (p *Policy) ResolveLimit(ip, country string) int64 {
	if l, ok := p.Limit[ip]; ok {
		return l
	}
	if parsed := net.ParseIP(ip); parsed != nil {
		if l, ok := p.cidr.match(parsed); ok {
			return l
		}
	}
	if l, ok := p.Limit[strings.ToUpper(country)]; ok {
		return l
	}
	return p.Limit[entityAll]
}

// ResolveBlockDuration applies the cascading lookup for block duration:
// exact IP, then country, then ALL. There is deliberately no CIDR step
// here; see DESIGN.md for the decision to preserve that asymmetry with
// ResolveLimit rather than "fix" it.
func (p *Policy) ResolveBlockDuration(ip, country string) int64 {
	if d, ok := p.Block[ip]; ok {
		return d
	}
	if d, ok := p.Block[strings.ToUpper(country)]; ok {
		return d
	}
	return p.Block[entityAll]
}
