package autofilter

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// crdnsVerifier is the subset of FCrDNSVerifier the daemon loop depends on,
// narrowed to an interface so tests can substitute a fake DNS outcome
// without a live resolver.
type crdnsVerifier interface {
	Verify(ip string) (string, error)
}

// Daemon composes the tailer, classifier, batcher, and flush pipeline into
// the production-log-path loop: start listeners (here, one tailer), wait
// on a stop signal, shut down cleanly.
type Daemon struct {
	ProductionLogPath string
	Policy            *Policy
	Ledger            *Ledger
	Verifier          crdnsVerifier
	GeoIP             *GeoIP
	Reload            *ReloadSignaler
	Counters          *Counters

	tailer  *Tailer
	batcher MinuteBatcher
	batch   *Batch
	stop    int32
}

// NewDaemon wires the daemon's collaborators. path becomes
// ProductionLogPath; Run refuses to tail any other path.
func NewDaemon(path string, policy *Policy, ledger *Ledger, verifier crdnsVerifier, geo *GeoIP, reload *ReloadSignaler) *Daemon {
	return &Daemon{
		ProductionLogPath: path,
		Policy:            policy,
		Ledger:            ledger,
		Verifier:          verifier,
		GeoIP:             geo,
		Reload:            reload,
		Counters:          NewCounters(),
		batch:             NewBatch(),
	}
}

// Stop requests graceful termination; the next yield boundary in Run
// observes it and returns with no in-flight flush interrupted.
func (d *Daemon) Stop() {
	atomic.StoreInt32(&d.stop, 1)
}

func (d *Daemon) stopped() bool {
	return atomic.LoadInt32(&d.stop) != 0
}

// Run starts tailing the configured production log, classifying and
// batching every line, and flushing on minute-prefix advances, until Stop is
// called or the tailer's line stream ends. Errors returned by the tailer are
// logged and the loop keeps reading. requestedPath must equal d.ProductionLogPath; this is a startup guard
// against accidentally reprocessing the wrong log.
func (d *Daemon) Run(requestedPath string, rotationCeiling int64, archiveTemplate, pidfile string) error {
	if requestedPath != d.ProductionLogPath {
		return ConfigError{File: requestedPath, Reason: "refusing to tail a path other than the configured production log"}
	}

	tailer, err := NewTailer(d.ProductionLogPath, FlavorTail, rotationCeiling, archiveTemplate, pidfile)
	if err != nil {
		return err
	}
	d.tailer = tailer
	defer d.tailer.Stop()

	for !d.stopped() {
		line, ok, err := d.tailer.Lines()
		if err != nil {
			Log.WithError(err).Error("tailer error")
			continue
		}
		if !ok {
			return nil
		}

		record, err := ParseLine(line)
		if err != nil {
			d.Counters.LinesUnparsed.Add(1)
			Log.WithError(err).Warn("skipping unparseable line")
			continue
		}
		d.Counters.LinesProcessed.Add(1)

		country := record.Country
		if country == "" && d.GeoIP != nil {
			country = d.GeoIP.Country(record.IP)
		}

		if prev, shouldFlush := d.batcher.Observe(record.MinutePrefix()); shouldFlush {
			if err := d.flush(prev); err != nil {
				Log.WithError(err).WithField("minute", prev).Error("flush failed")
			}
		}

		classified := Classify(record)
		d.batch.Add(record.IP, classified.Weight, country, record.UserAgent)
	}
	return nil
}

// flush implements read-expire-mutate-write-signal-clear sequence.
func (d *Daemon) flush(minute string) error {
	now := time.Now()

	records, err := d.Ledger.Read(now)
	if err != nil {
		return err
	}
	d.Counters.IPsExpired.Add(int64(d.Ledger.LastExpiredCount()))

	for _, ip := range d.batch.IPs() {
		load := d.batch.Load[ip]
		country := d.batch.Country[ip]

		limit := d.Policy.ResolveLimit(ip, country)
		if load <= limit {
			continue
		}

		d.Counters.FCrDNSAttempts.Add(1)
		domain, verr := d.Verifier.Verify(ip)
		if verr == nil && IsWhitelisted(domain) {
			d.Counters.FCrDNSPasses.Add(1)
			Log.WithFields(logrus.Fields{"ip": ip, "domain": domain}).Info("exempting verified crawler")
			continue
		}
		d.Counters.FCrDNSFailures.Add(1)

		userAgent := d.batch.UserAgent[ip]
		var annotation string
		if verr != nil {
			annotation = "error: " + verr.Error() + " | " + userAgent
		} else {
			annotation = domain + " | " + userAgent
		}

		duration := d.Policy.ResolveBlockDuration(ip, country)
		records[ip] = BlockRecord{
			IP:         ip,
			Country:    country,
			PeakLoad:   load,
			BlockUntil: now.Add(time.Duration(duration) * time.Second).Unix(),
			Annotation: annotation,
		}
		d.Counters.IPsBlocked.Add(1)
	}

	if err := d.Ledger.Write(records); err != nil {
		return err
	}
	d.Counters.MinutesFlushed.Add(1)

	members := make([]string, 0, len(records))
	for ip := range records {
		members = append(members, ip)
	}
	sent, err := d.Reload.MaybeSignal(now, members)
	if err != nil {
		Log.WithError(err).Warn("failed to signal reload")
	} else if sent {
		d.Counters.ReloadsSent.Add(1)
	} else {
		d.Counters.ReloadsSuppressed.Add(1)
	}

	d.batch = NewBatch()
	return nil
}
