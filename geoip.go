package autofilter

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// GeoIP enriches a request's country when the log line itself carries none.
// It only needs the two-letter ISO country code, so it queries a narrow
// record shape rather than the full MaxMind schema.
type GeoIP struct {
	db *maxminddb.Reader
}

// OpenGeoIP opens a MaxMind GeoIP2/GeoLite2 database for country lookups.
// An empty path is a configuration error: callers should only invoke this
// when geoip.database_path is set.
func OpenGeoIP(path string) (*GeoIP, error) {
	if path == "" {
		return nil, ConfigError{File: path, Reason: "geoip database path is empty"}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, ConfigError{File: path, Reason: fmt.Sprintf("failed to open geoip database: %s", err)}
	}
	return &GeoIP{db: db}, nil
}

// Country returns the ISO country code for ip, or "" if the address isn't
// found. Lookup failures are logged and treated as a miss rather than
// propagated: GeoIP enrichment is never a correctness dependency.
func (g *GeoIP) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := g.db.Lookup(parsed, &record); err != nil {
		Log.WithField("ip", ip).WithError(err).Debug("geoip lookup failed")
		return ""
	}
	return record.Country.ISOCode
}

// Close releases the underlying database handle.
func (g *GeoIP) Close() error {
	return g.db.Close()
}
