package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
)

const (
	MissingInputWarning = "Please provide either an audio URL or upload an audio file."
	ProcessingMessage   = "Fetching subtitles..."
)

// Terminal renders coordinator effects as styled lines on out
type Terminal struct {
	mu         sync.Mutex
	out        io.Writer
	transcript string
	formats    []subtitles.Format
	quiet      bool
	brief      bool
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Quiet suppresses the processing line, for use behind a spinner
func (t *Terminal) Quiet(quiet bool) {
	t.mu.Lock()
	t.quiet = quiet
	t.mu.Unlock()
}

// Brief keeps the transcript out of the output; visibility changes are
// still tracked by the coordinator.
func (t *Terminal) Brief(brief bool) {
	t.mu.Lock()
	t.brief = brief
	t.mu.Unlock()
}

func (t *Terminal) println(s string) {
	fmt.Fprintln(t.out, s)
}

func (t *Terminal) ShowWarning(visible bool) {
	if !visible {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(StyleWarning.Render(MissingInputWarning))
}

func (t *Terminal) SetProcessing(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if on && !t.quiet {
		t.println(StyleMuted.Render(ProcessingMessage))
	}
}

func (t *Terminal) ShowStatus(msg string) {
	if msg == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(StyleError.Render(msg))
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transcript = ""
	t.formats = nil
}

func (t *Terminal) RenderTranscript(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transcript = text
}

func (t *Terminal) RevealExports(formats []subtitles.Format) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.formats = formats

	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = strings.ToUpper(string(f))
	}
	t.println(StyleSuccess.Render("Subtitles ready: " + strings.Join(names, ", ")))
}

func (t *Terminal) SetTranscriptVisible(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.brief {
		return
	}
	if !visible {
		t.println(StyleMuted.Render("(transcript hidden)"))
		return
	}
	t.println(StyleLabel.Render("Transcript"))
	t.println(StyleBox.Render(t.transcript))
}

// Formats returns the formats revealed by the last result
func (t *Terminal) Formats() []subtitles.Format {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.formats
}
