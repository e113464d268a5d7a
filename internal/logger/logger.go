// Package logger is the disassembler's diagnostic log: each line goes to a
// log/slog stderr handler (behind a github.com/samber/slog-multi fan-out)
// and, separately, to a bounded ring buffer a caller can dump on error
// (mirroring the teacher's logger.Logf/Log/Clear/WriteRecent surface).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// Allowance gates whether a call site's log line is actually recorded,
// the same role the teacher's logger.Allow/logger.Disallow play at call
// sites that are noisy by default (e.g. per-sample audio logging).
type Allowance bool

const (
	Allow    Allowance = true
	Disallow Allowance = false
)

type recorder struct {
	mu      sync.Mutex
	entries []string
	cap     int
}

func (r *recorder) Handle(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, msg)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

func (r *recorder) writeRecent(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		fmt.Fprintln(w, e)
	}
}

const recentCapacity = 512

var recent = &recorder{cap: recentCapacity}

var base = slog.New(slogmulti.Fanout(
	slog.NewTextHandler(os.Stderr, nil),
))

// Logf records a formatted diagnostic line under domain, always allowed.
// Mirrors the two-argument-domain call sites (logger.Logf("dwarf", ...)).
func Logf(domain, format string, args ...any) {
	Log(Allow, domain, fmt.Sprintf(format, args...))
}

// Log records msg under domain if allow permits it, mirroring the
// three-argument call sites that gate noisy per-frame/per-sample logging
// (logger.Log(logger.Allow, "sdlaudio", ...)).
func Log(allow Allowance, domain, msg string) {
	if allow != Allow {
		return
	}
	line := fmt.Sprintf("%s: %s", domain, msg)
	base.Info(line)
	recent.Handle(line)
}

// Clear empties the recent-log ring buffer.
func Clear() { recent.clear() }

// WriteRecent writes every buffered recent log line to w, newest last.
func WriteRecent(w io.Writer) { recent.writeRecent(w) }
