package autofilter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFCrDNSUnreachable = errors.New("fcrdns: resolver unreachable in test")

type fakeVerifier struct {
	domain string
	err    error
}

func (f fakeVerifier) Verify(ip string) (string, error) {
	return f.domain, f.err
}

func newTestDaemon(t *testing.T, policy *Policy, verifier crdnsVerifier) *Daemon {
	t.Helper()
	ledger := NewLedger(filepath.Join(t.TempDir(), "bot.conf"))
	reload := NewReloadSignaler(filepath.Join(t.TempDir(), "httpd.pid"), time.Minute)
	reload.signalReload = func(string) error { return nil }
	return NewDaemon("/var/log/access.log", policy, ledger, verifier, nil, reload)
}

func cascadePolicy(t *testing.T) *Policy {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "autofilter.conf")
	writePolicyFile(t, path, "limit 10.0.0.0/8 100\nlimit CN 200\nlimit ALL 600\n")
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	return p
}

func writePolicyFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestDaemonFlushCascadeBlocksUnderCIDRLimit(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{err: errFCrDNSUnreachable})

	d.batch.Add("10.1.2.3", 150, "CN", "curl/8")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	_, blocked := out["10.1.2.3"]
	require.True(t, blocked, "150 load exceeds the /8 CIDR limit of 100")
}

func TestDaemonFlushCascadeAllowsUnderCountryLimit(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{err: errFCrDNSUnreachable})

	d.batch.Add("8.8.8.8", 150, "CN", "curl/8")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	_, blocked := out["8.8.8.8"]
	require.False(t, blocked, "150 load is under the CN country limit of 200")
}

func TestDaemonFlushExemptsVerifiedCrawler(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{domain: "crawl-66-249-66-1.googlebot.com."})

	d.batch.Add("66.249.66.1", 10000, "US", "Googlebot")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	_, blocked := out["66.249.66.1"]
	require.False(t, blocked, "verified googlebot must never be blocked")
}

func TestDaemonFlushRecordsFCrDNSMismatchAnnotation(t *testing.T) {
	p := cascadePolicy(t)
	verifyErr := FCrDNSError{IP: "66.249.66.1", Reason: "forward answer mismatch"}
	d := newTestDaemon(t, p, fakeVerifier{err: verifyErr})

	d.batch.Add("66.249.66.1", 10000, "US", "Googlebot")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	rec, blocked := out["66.249.66.1"]
	require.True(t, blocked)
	require.Equal(t, "error: "+verifyErr.Error()+" | Googlebot", rec.Annotation)
}

func TestDaemonFlushRecordsResolvedButNotWhitelistedAnnotation(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{domain: "some-host.example.com."})

	d.batch.Add("66.249.66.1", 10000, "US", "curl/8")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	rec, blocked := out["66.249.66.1"]
	require.True(t, blocked, "resolved-but-not-whitelisted domain still exceeds the rate limit")
	require.Equal(t, "some-host.example.com. | curl/8", rec.Annotation)
}

func TestDaemonFlushClearsBatch(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{err: errFCrDNSUnreachable})

	d.batch.Add("1.2.3.4", 5, "US", "curl/8")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	require.Empty(t, d.batch.Load)
	require.Empty(t, d.batch.Country)
	require.Empty(t, d.batch.UserAgent)
}

func TestDaemonFlushHonorsExistingExpiry(t *testing.T) {
	p := cascadePolicy(t)
	d := newTestDaemon(t, p, fakeVerifier{err: errFCrDNSUnreachable})

	require.NoError(t, d.Ledger.Write(map[string]BlockRecord{
		"9.9.9.9": {IP: "9.9.9.9", Country: "US", PeakLoad: 999, BlockUntil: time.Now().Add(-time.Second).Unix()},
	}))

	d.batch.Add("1.1.1.1", 1, "US", "curl/8")
	require.NoError(t, d.flush("2024-01-01T00:00"))

	out, err := d.Ledger.Read(time.Now())
	require.NoError(t, err)
	_, stillThere := out["9.9.9.9"]
	require.False(t, stillThere, "expired record must not survive a flush")
}
