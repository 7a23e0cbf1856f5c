package chat

import (
	"context"
	"io"
	"iter"
	"time"
	"unicode/utf8"
)

// Units yields text one rune at a time. Each unit is the rune's original
// bytes, so invalid UTF-8 passes through unchanged. The sequence is finite
// and can be ranged over again to restart it.
func Units(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			if !yield(text[i : i+size]) {
				return
			}
			i += size
		}
	}
}

// Reveal writes text to w one unit at a time with delay between units and
// returns the full text. A non-positive delay writes everything at once.
// Cancelling ctx skips the rest of the animation and writes the remainder.
func Reveal(ctx context.Context, w io.Writer, text string, delay time.Duration) (string, error) {
	if delay <= 0 {
		_, err := io.WriteString(w, text)
		return text, err
	}

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for i := 0; i < len(text); {
		if i > 0 {
			select {
			case <-ctx.Done():
				_, err := io.WriteString(w, text[i:])
				return text, err
			case <-ticker.C:
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		if _, err := io.WriteString(w, text[i:i+size]); err != nil {
			return text, err
		}
		i += size
	}
	return text, nil
}

// Revealer is the step-driven form of Reveal for hosts that own their own
// clock, such as a TUI tick.
type Revealer struct {
	text string
	pos  int // byte offset of the first hidden rune
}

// NewRevealer starts a reveal of text with nothing shown
func NewRevealer(text string) *Revealer {
	return &Revealer{text: text}
}

// Advance shows up to n more units and reports whether anything changed
func (r *Revealer) Advance(n int) bool {
	moved := false
	for ; n > 0 && r.pos < len(r.text); n-- {
		_, size := utf8.DecodeRuneInString(r.text[r.pos:])
		r.pos += size
		moved = true
	}
	return moved
}

// Shown returns the revealed prefix
func (r *Revealer) Shown() string {
	return r.text[:r.pos]
}

// Text returns the full text being revealed
func (r *Revealer) Text() string {
	return r.text
}

// Done reports whether the whole text is shown
func (r *Revealer) Done() bool {
	return r.pos >= len(r.text)
}

// Finish shows the whole text
func (r *Revealer) Finish() {
	r.pos = len(r.text)
}

// Reset hides everything again
func (r *Revealer) Reset() {
	r.pos = 0
}
