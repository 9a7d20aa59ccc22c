package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	autofilter "github.com/kraklabs/autofilter"
)

// These reporting commands are deliberately thin, read-only consumers of
// the line parser and the block ledger; none of them mutate the
// policy file, the ledger, or the access log.

func runTopTalkers(logPath string, topN int) error {
	load := make(map[string]int64)
	err := forEachLine(logPath, func(r autofilter.Record) {
		load[r.IP] += autofilter.Classify(r).Weight
	})
	if err != nil {
		return err
	}

	type entry struct {
		ip   string
		load int64
	}
	entries := make([]entry, 0, len(load))
	for ip, l := range load {
		entries = append(entries, entry{ip, l})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].load > entries[j].load })

	if topN > len(entries) {
		topN = len(entries)
	}
	for _, e := range entries[:topN] {
		fmt.Printf("%10d %s\n", e.load, e.ip)
	}
	return nil
}

func runExtHist(logPath string) error {
	counts := make(map[string]int64)
	err := forEachLine(logPath, func(r autofilter.Record) {
		ext := autofilter.Classify(r).Ext
		if ext == "" {
			ext = "(none)"
		}
		counts[ext]++
	})
	if err != nil {
		return err
	}
	return printHistogram(counts)
}

func runByteHist(logPath string) error {
	buckets := []int64{0, 1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024}
	counts := make(map[string]int64)
	err := forEachLine(logPath, func(r autofilter.Record) {
		n, convErr := strconv.ParseInt(r.Bytes, 10, 64)
		if convErr != nil {
			return
		}
		counts[bucketLabel(buckets, n)]++
	})
	if err != nil {
		return err
	}
	return printHistogram(counts)
}

func bucketLabel(buckets []int64, n int64) string {
	for i := len(buckets) - 1; i >= 0; i-- {
		if n >= buckets[i] {
			return fmt.Sprintf(">=%d", buckets[i])
		}
	}
	return "<0"
}

func runErrors(logPath string) error {
	return forEachLine(logPath, func(r autofilter.Record) {
		if len(r.Status) > 0 && r.Status[0] == '5' {
			fmt.Printf("%s %s %s %s\n", r.Time, r.IP, r.Status, r.URI)
		}
	})
}

func runFwPopulate(ledgerPath, setName string) error {
	ledger := autofilter.NewLedger(ledgerPath)
	records, err := ledger.Read(time.Now())
	if err != nil {
		return err
	}
	ips := make([]string, 0, len(records))
	for ip := range records {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	for _, ip := range ips {
		fmt.Printf("ipset add %s %s\n", setName, ip)
	}
	return nil
}

// runTorFetch fetches a plaintext list of Tor exit-node addresses and
// writes it one-per-line to outPath: a bufio.Scanner over an HTTP GET
// response body, with no caching or retry — this command's whole job is a
// single fetch-and-materialize, left for a human to act on.
func runTorFetch(url, outPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("got unexpected status code %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if _, err := w.WriteString(scanner.Text() + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return w.Flush()
}

func printHistogram(counts map[string]int64) error {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		fmt.Printf("%10d %s\n", counts[k], k)
	}
	return nil
}

// forEachLine drains logPath once ("once" flavor) and invokes fn for
// every line that parses cleanly, matching the reporting commands' reuse of
// C3 rather than a bespoke scanner.
func forEachLine(logPath string, fn func(autofilter.Record)) error {
	tailer, err := autofilter.NewTailer(logPath, autofilter.FlavorOnce, 0, "", "")
	if err != nil {
		return err
	}
	defer tailer.Stop()

	for {
		line, ok, err := tailer.Lines()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		r, err := autofilter.ParseLine(line)
		if err != nil {
			continue
		}
		fn(r)
	}
}
