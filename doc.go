/*
Package autofilter implements the classifier and decision engine behind an
adaptive traffic-filtering daemon for a front-end HTTP server. It tails an
access-log stream, accumulates per-minute request load per client address,
and emits a block directive when a client exceeds a policy-defined
threshold. A forward-confirmed reverse-DNS check exempts verified search
engine crawlers from blocking.

The package is organized around the pipeline a running daemon drives:

Policy

A Policy (see Policy, LoadPolicy) holds the per-entity rate ceilings and
block durations read from a text configuration file. Entities are IP
addresses, CIDR blocks, country codes, or the ALL default.

Parsing and classification

ParseLine extracts fields from one access-log line. Classify assigns an
integer weight to a parsed Record based on its extension, status, method
and query string.

Batching

A Batch accumulates load, country, and user-agent observations for one
minute of traffic, keyed by client IP. It is flushed and cleared once the
log's own minute prefix changes.

Decisions

ResolveLimit and ResolveBlockDuration apply the policy's cascading lookup
to find the rate ceiling and block duration for an address. Verify
performs the forward-confirmed reverse-DNS check used to exempt
legitimate crawlers.

Ledger

A Ledger is the persisted, atomically-rewritten set of currently blocked
addresses, read and written by the daemon on every flush.

Daemon

Daemon composes all of the above around a Tailer, invoking a flush
whenever the minute prefix of the log stream advances.
*/
package autofilter
