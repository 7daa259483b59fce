package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
)

// MockSubmitter implements transcriber.Submitter for testing. When Gate is
// set, Send blocks until it is closed or the context ends.
type MockSubmitter struct {
	Result *subtitles.TranscriptionResult
	Err    error
	Gate   chan struct{}

	mu    sync.Mutex
	calls []subtitles.Submission
}

func NewMockSubmitter(result *subtitles.TranscriptionResult, err error) *MockSubmitter {
	return &MockSubmitter{Result: result, Err: err}
}

func (m *MockSubmitter) Send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sub)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Result, m.Err
}

func (m *MockSubmitter) Calls() []subtitles.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]subtitles.Submission, len(m.calls))
	copy(result, m.calls)
	return result
}

func (m *MockSubmitter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// SampleResult returns a result carrying the sample payloads
func SampleResult() *subtitles.TranscriptionResult {
	return &subtitles.TranscriptionResult{
		FullTranscript: SampleTranscript,
		Subtitles: []subtitles.Subtitle{
			{Format: subtitles.SRT, Subtitles: SampleSRT},
			{Format: subtitles.VTT, Subtitles: SampleVTT},
		},
	}
}

// RecordingSurface records every surface call as a string such as
// "SetProcessing(true)".
type RecordingSurface struct {
	mu    sync.Mutex
	calls []string
}

func (s *RecordingSurface) record(format string, args ...any) {
	s.mu.Lock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *RecordingSurface) ShowWarning(visible bool) { s.record("ShowWarning(%t)", visible) }
func (s *RecordingSurface) SetProcessing(on bool)    { s.record("SetProcessing(%t)", on) }
func (s *RecordingSurface) ShowStatus(msg string)    { s.record("ShowStatus(%q)", msg) }
func (s *RecordingSurface) Clear()                   { s.record("Clear()") }

func (s *RecordingSurface) RenderTranscript(text string) {
	s.record("RenderTranscript(%q)", text)
}

func (s *RecordingSurface) SetTranscriptVisible(visible bool) {
	s.record("SetTranscriptVisible(%t)", visible)
}

func (s *RecordingSurface) RevealExports(formats []subtitles.Format) {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	s.record("RevealExports(%s)", strings.Join(names, ","))
}

func (s *RecordingSurface) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.calls))
	copy(result, s.calls)
	return result
}

// Count returns how many recorded calls start with prefix
func (s *RecordingSurface) Count(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (s *RecordingSurface) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}
