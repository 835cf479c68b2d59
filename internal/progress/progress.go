// Package progress renders per-file status lines in a fixed block of
// terminal rows. Each in-flight file owns one row ("slot") at a time.
//
// All terminal state lives in a single goroutine that drains an event
// channel; callers only send messages, so concurrent Write and Rewrite calls
// can never interleave escape sequences.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis terminates lines truncated to the terminal width.
const Ellipsis = "…"

// Options control rendering.
type Options struct {
	// Interactive enables cursor movement. When false every message is
	// printed as a plain line.
	Interactive bool
	// Width truncates lines to this many cells. Zero disables truncation.
	Width int
}

type event struct {
	slot    int
	text    string
	rewrite bool
	finish  bool
}

// Reporter owns a block of n terminal lines.
type Reporter struct {
	w      io.Writer
	n      int
	opts   Options
	events chan event
	done   chan struct{}
	once   sync.Once

	// Owned by the run goroutine.
	current int
	err     error
}

// New starts a reporter with n slots writing to w. n below 1 is treated as 1.
func New(w io.Writer, n int, opts Options) *Reporter {
	if n < 1 {
		n = 1
	}
	r := &Reporter{
		w:      w,
		n:      n,
		opts:   opts,
		events: make(chan event, n*2),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Slots returns the number of lines the reporter manages.
func (r *Reporter) Slots() int { return r.n }

// Write moves to the slot's line and prints text over the existing content.
func (r *Reporter) Write(slot int, text string) {
	r.send(event{slot: slot, text: text})
}

// Rewrite clears the slot's line before printing text.
func (r *Reporter) Rewrite(slot int, text string) {
	r.send(event{slot: slot, text: text, rewrite: true})
}

// Finish moves below the block, prints a newline and stops the reporter.
// Messages sent before Finish are rendered first. It is safe to call more
// than once; later calls return the first result.
func (r *Reporter) Finish() error {
	r.once.Do(func() {
		r.send(event{finish: true})
	})
	<-r.done
	return r.err
}

func (r *Reporter) send(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Reporter) run() {
	defer close(r.done)
	if r.opts.Interactive && r.n > 1 {
		r.emit(strings.Repeat("\n", r.n-1) + ansi.CursorUp(r.n-1))
	}
	for ev := range r.events {
		if ev.finish {
			if r.opts.Interactive {
				r.emit(r.moveTo(r.n-1) + "\n")
			}
			return
		}
		r.render(ev)
	}
}

func (r *Reporter) render(ev event) {
	slot := ev.slot % r.n
	if slot < 0 {
		slot += r.n
	}
	text := ev.text
	if !r.opts.Interactive {
		r.emit(ansi.Strip(text) + "\n")
		return
	}
	if r.opts.Width > 0 {
		text = ansi.Truncate(text, r.opts.Width, Ellipsis)
	}
	var b strings.Builder
	b.WriteString(r.moveTo(slot))
	if ev.rewrite {
		b.WriteString(ansi.EraseEntireLine)
	}
	b.WriteString(text)
	r.emit(b.String())
}

// moveTo returns the sequence that puts the cursor at column 0 of line and
// records the new position.
func (r *Reporter) moveTo(line int) string {
	var s string
	switch d := line - r.current; {
	case d > 0:
		s = ansi.CursorDown(d)
	case d < 0:
		s = ansi.CursorUp(-d)
	}
	r.current = line
	return s + "\r"
}

func (r *Reporter) emit(s string) {
	if r.err != nil {
		return
	}
	if _, err := io.WriteString(r.w, s); err != nil {
		r.err = fmt.Errorf("progress: write: %w", err)
	}
}
