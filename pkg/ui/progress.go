// Package ui prints the run's progress as a single updating status
// line on the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
)

// Reporter writes progress lines. Quiet mode suppresses everything
// except the final summary.
type Reporter struct {
	out   io.Writer
	quiet bool
}

// NewReporter creates a Reporter writing to stderr.
func NewReporter(quiet bool) *Reporter {
	return &Reporter{out: os.Stderr, quiet: quiet}
}

// NewReporterTo creates a Reporter with an explicit sink.
func NewReporterTo(out io.Writer, quiet bool) *Reporter {
	return &Reporter{out: out, quiet: quiet}
}

// PageStart announces that a page is being backed up.
func (r *Reporter) PageStart(page, startPage, endPage int) {
	if r.quiet {
		return
	}
	total := endPage - startPage + 1
	done := page - startPage
	fmt.Fprintf(r.out, "\r\033[Kbacking up page %d (%d/%d, %.0f%%)",
		page, done, total, float64(done)/float64(total)*100)
}

// PageDone reports one page's outcome.
func (r *Reporter) PageDone(page, statuses, failures int, path string) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "\r\033[Kpage %d: %d statuses", page, statuses)
	if failures > 0 {
		fmt.Fprintf(r.out, " (%d dropped)", failures)
	}
	fmt.Fprintf(r.out, " -> %s\n", path)
}

// PageSkipped reports a page the run gave up on.
func (r *Reporter) PageSkipped(page int, reason string) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "\r\033[Kpage %d skipped: %s\n", page, reason)
}

// Pacing reports the randomized delay before the next page.
func (r *Reporter) Pacing(seconds float64) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "\r\033[Kwaiting %.1fs before the next page...", seconds)
}

// Summary reports the final outcome. Printed even in quiet mode.
func (r *Reporter) Summary(pages, statuses int, bundlePath string) {
	fmt.Fprintf(r.out, "\r\033[Kdone: %d pages, %d statuses backed up\n", pages, statuses)
	if bundlePath != "" {
		fmt.Fprintf(r.out, "archive: %s\n", bundlePath)
	}
}

// Cancelled reports that the run stopped because its cursor vanished.
func (r *Reporter) Cancelled() {
	fmt.Fprintf(r.out, "\r\033[Kbackup cancelled\n")
}
