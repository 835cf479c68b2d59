package progress

import (
	"os"

	"github.com/charmbracelet/x/term"
)

// FallbackHeight bounds slots on an interactive terminal whose size is unknown.
const FallbackHeight = 24

// Terminal describes the output device.
type Terminal struct {
	Interactive bool
	Width       int
	Height      int
}

// Detect inspects f. Size lookups that fail leave Width and Height at zero.
func Detect(f *os.File) Terminal {
	if f == nil || !term.IsTerminal(f.Fd()) {
		return Terminal{}
	}
	t := Terminal{Interactive: true}
	if w, h, err := term.GetSize(f.Fd()); err == nil {
		t.Width, t.Height = w, h
	}
	return t
}

// Options returns reporter options for t.
func (t Terminal) Options() Options {
	return Options{Interactive: t.Interactive, Width: t.Width}
}

// SlotCount bounds the number of concurrent status lines. An interactive
// terminal keeps one row free for the cursor; other outputs are unbounded.
func (t Terminal) SlotCount(files int) int {
	n := files
	if t.Interactive {
		h := t.Height
		if h <= 1 {
			h = FallbackHeight
		}
		if n > h-1 {
			n = h - 1
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
