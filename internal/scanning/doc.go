// Package scanning provides the TCP probing engine for skim.
//
// A scan examines every port of a PortSpec on a single resolved target.
// Each port is handled by a Prober, which connects with retries, reads a
// banner, attempts a TLS handshake on a second connection and assigns a
// service label. The Scanner fans probes out under a fixed concurrency cap
// and joins them all before returning.
//
// # Retry behaviour
//
// Every connect attempt is classified into an AttemptOutcome. A RetryPolicy
// decides from that outcome whether to try again: resource exhaustion on the
// local host (EMFILE, ENFILE, ENOBUFS, ENOMEM) waits ScanConfig.ExhaustionBackoff
// first, every other failure retries immediately, until ScanConfig.Retries
// attempts have been made.
//
// # Banner grabbing
//
// Once connected, the prober sends in turn an HTTP HEAD request, an HTTP GET
// request, a bare CRLF pair and a HELP command, reading after each. The first
// response that is non-empty after lenient UTF-8 decoding and whitespace
// trimming becomes the banner.
//
// # Result ordering
//
// Results are written into a slice pre-sized to the port list, one slot per
// probe, so they come back in input order without any sorting. If the scan
// context is cancelled before every probe completes, Run discards the partial
// results and returns an error wrapping errors.ErrUserAbort.
//
// # Usage
//
//	ports, err := scanning.ParsePortSpec("22,80,443,8000-8100")
//	if err != nil {
//		return err
//	}
//
//	scanner, err := scanning.NewScanner(scanning.DefaultScanConfig(), recorder, logger)
//	if err != nil {
//		return err
//	}
//
//	results, stats, err := scanner.Run(ctx, tgt, ports)
package scanning
