package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func collect(text string) []string {
	var out []string
	for unit := range Units(text) {
		out = append(out, unit)
	}
	return out
}

func TestUnits(t *testing.T) {
	got := collect("¡Hola!")
	want := []string{"¡", "H", "o", "l", "a", "!"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Units() = %q, want %q", got, want)
	}

	// Ranging again starts over
	again := collect("¡Hola!")
	if len(again) != len(want) {
		t.Errorf("second pass yielded %d units, want %d", len(again), len(want))
	}

	if units := collect(""); len(units) != 0 {
		t.Errorf("Units(\"\") yielded %d units", len(units))
	}
}

func TestUnits_EarlyStop(t *testing.T) {
	n := 0
	for range Units("abcdef") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("consumed %d units, want 2", n)
	}
}

func TestReveal(t *testing.T) {
	var buf bytes.Buffer
	text := "typewriter ✓"

	start := time.Now()
	got, err := Reveal(context.Background(), &buf, text, time.Millisecond)
	if err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if got != text {
		t.Errorf("Reveal() = %q, want %q", got, text)
	}
	if buf.String() != text {
		t.Errorf("written = %q, want %q", buf.String(), text)
	}
	// 12 units -> 11 pauses
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Reveal() took %v, expected pauses between units", elapsed)
	}
}

func TestReveal_NoDelay(t *testing.T) {
	var buf bytes.Buffer
	got, err := Reveal(context.Background(), &buf, "instant", 0)
	if err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if got != "instant" || buf.String() != "instant" {
		t.Errorf("Reveal() = %q, written %q", got, buf.String())
	}
}

func TestReveal_CancelFlushesRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	text := strings.Repeat("x", 200)
	got, err := Reveal(ctx, &buf, text, time.Hour)
	if err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if got != text || buf.String() != text {
		t.Errorf("cancelled reveal wrote %d bytes, want %d", buf.Len(), len(text))
	}
}

func TestRevealer(t *testing.T) {
	r := NewRevealer("añb")
	if r.Shown() != "" || r.Done() {
		t.Fatalf("new revealer should show nothing")
	}

	if !r.Advance(2) {
		t.Fatal("Advance(2) should move")
	}
	if r.Shown() != "añ" {
		t.Errorf("Shown() = %q, want %q", r.Shown(), "añ")
	}

	r.Advance(5)
	if !r.Done() || r.Shown() != "añb" {
		t.Errorf("Shown() = %q, Done() = %v", r.Shown(), r.Done())
	}
	if r.Advance(1) {
		t.Error("Advance past the end should report no change")
	}

	r.Reset()
	if r.Shown() != "" {
		t.Errorf("after Reset Shown() = %q", r.Shown())
	}
	r.Finish()
	if r.Shown() != r.Text() {
		t.Errorf("after Finish Shown() = %q", r.Shown())
	}
}

func TestUnits_InvalidUTF8PassesThrough(t *testing.T) {
	text := "a\xffñ\xc3"
	got := collect(text)
	want := []string{"a", "\xff", "ñ", "\xc3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Units() = %q, want %q", got, want)
	}
	if strings.Join(got, "") != text {
		t.Errorf("units rejoin to %q, want %q", strings.Join(got, ""), text)
	}
}

func TestReveal_InvalidUTF8PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	text := "ok\xff\xfe!"

	if _, err := Reveal(context.Background(), &buf, text, time.Millisecond); err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if buf.String() != text {
		t.Errorf("wrote %q, want %q", buf.String(), text)
	}
}
