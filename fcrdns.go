package autofilter

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// searchEngineSuffixes is the fixed allowlist of domain suffixes (trailing
// dot included) that exempt a verified crawler from blocking. No
// other suffix exempts, regardless of what the forward lookup confirms.
var searchEngineSuffixes = []string{
	".googlebot.com.",
	".google.com.",
	".yandex.com.",
	".yandex.net.",
	".yandex.ru.",
	".search.msn.com.",
}

// defaultResolver is used when a daemon config doesn't set one.
const defaultResolver = "127.0.0.1:53"

// defaultQueryTimeout bounds a single PTR/A/AAAA lookup when a daemon
// config doesn't set one.
const defaultQueryTimeout = 5 * time.Second

// FCrDNSVerifier performs forward-confirmed reverse-DNS lookups against a
// single, operator-configured resolver. Lookups are synchronous and
// one-shot: the daemon's flush path issues them inline, one per
// threshold-exceeding IP, so there's no need for connection pipelining.
type FCrDNSVerifier struct {
	Resolver string
	Timeout  time.Duration
}

// NewFCrDNSVerifier returns a verifier using the given resolver address
// (host:port) and per-query timeout. An empty resolver defaults to the
// loopback address; a zero timeout defaults to 5 seconds.
func NewFCrDNSVerifier(resolver string, timeout time.Duration) *FCrDNSVerifier {
	if resolver == "" {
		resolver = defaultResolver
	}
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	return &FCrDNSVerifier{Resolver: resolver, Timeout: timeout}
}

// Verify performs the forward-confirmed reverse-DNS check: a PTR lookup of
// ip, followed by a forward lookup (AAAA for a v6 address, A otherwise) of
// the name returned, compared back against ip. It returns the confirmed
// domain on success, or an FCrDNSError describing the DNS failure or
// mismatch.
func (v *FCrDNSVerifier) Verify(ip string) (string, error) {
	log := Log.WithFields(logrus.Fields{"ip": ip, "resolver": v.Resolver})

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", FCrDNSError{IP: ip, Reason: "invalid IP address"}
	}

	reverseName, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", FCrDNSError{IP: ip, Reason: err.Error()}
	}

	ptrName, err := v.lookupPTR(reverseName)
	if err != nil {
		log.WithError(err).Debug("fcrdns reverse lookup failed")
		return "", FCrDNSError{IP: ip, Reason: err.Error()}
	}

	qtype := dns.TypeA
	if strings.Contains(ip, ":") {
		qtype = dns.TypeAAAA
	}
	forwardIPs, err := v.lookupForward(ptrName, qtype)
	if err != nil {
		log.WithError(err).Debug("fcrdns forward lookup failed")
		return "", FCrDNSError{IP: ip, Reason: err.Error()}
	}
	if len(forwardIPs) == 0 {
		return "", FCrDNSError{IP: ip, Reason: "no forward answer"}
	}
	if !forwardIPs[0].Equal(parsed) {
		return "", FCrDNSError{IP: ip, Reason: fmt.Sprintf("forward answer %s does not match %s", forwardIPs[0], ip)}
	}
	return ptrName, nil
}

func (v *FCrDNSVerifier) exchange(name string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: v.Timeout}
	resp, _, err := c.Exchange(m, v.Resolver)
	if err != nil {
		return nil, err
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp, nil
	case dns.RcodeNameError:
		return nil, fmt.Errorf("NXDOMAIN")
	default:
		return nil, fmt.Errorf("dns error: %s", dns.RcodeToString[resp.Rcode])
	}
}

func (v *FCrDNSVerifier) lookupPTR(reverseName string) (string, error) {
	resp, err := v.exchange(reverseName, dns.TypePTR)
	if err != nil {
		return "", err
	}
	for _, a := range resp.Answer {
		if ptr, ok := a.(*dns.PTR); ok {
			return ptr.Ptr, nil
		}
	}
	return "", fmt.Errorf("no PTR answer")
}

func (v *FCrDNSVerifier) lookupForward(name string, qtype uint16) ([]net.IP, error) {
	resp, err := v.exchange(name, qtype)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, a := range resp.Answer {
		switch rr := a.(type) {
		case *dns.A:
			ips = append(ips, rr.A)
		case *dns.AAAA:
			ips = append(ips, rr.AAAA)
		}
	}
	return ips, nil
}

// IsWhitelisted reports whether domain (as returned by Verify) ends with
// one of the fixed search-engine suffixes.
func IsWhitelisted(domain string) bool {
	domain = dns.Fqdn(domain)
	for _, suffix := range searchEngineSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}
