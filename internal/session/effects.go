package session

import "github.com/leonardotrapani/getsubs/internal/subtitles"

// Surface is the UI layer the coordinator materializes results into
type Surface interface {
	ShowWarning(visible bool)
	SetProcessing(on bool)
	ShowStatus(msg string)
	Clear()
	RenderTranscript(text string)
	RevealExports(formats []subtitles.Format)
	SetTranscriptVisible(visible bool)
}

// NopSurface ignores every effect.
type NopSurface struct{}

func (NopSurface) ShowWarning(bool)                 {}
func (NopSurface) SetProcessing(bool)               {}
func (NopSurface) ShowStatus(string)                {}
func (NopSurface) Clear()                           {}
func (NopSurface) RenderTranscript(string)          {}
func (NopSurface) RevealExports([]subtitles.Format) {}
func (NopSurface) SetTranscriptVisible(bool)        {}

// Effect is a side effect produced by a state transition
type Effect interface {
	Apply(s Surface)
}

type ShowWarning struct{ Visible bool }

type SetProcessing struct{ On bool }

type ShowStatus struct{ Message string }

type Clear struct{}

type RenderTranscript struct{ Text string }

type RevealExports struct{ Formats []subtitles.Format }

type SetTranscriptVisible struct{ Visible bool }

// SendRequest asks the coordinator to run the submitter. It has no
// surface counterpart.
type SendRequest struct {
	ID         string
	Submission subtitles.Submission
}

func (e ShowWarning) Apply(s Surface)          { s.ShowWarning(e.Visible) }
func (e SetProcessing) Apply(s Surface)        { s.SetProcessing(e.On) }
func (e ShowStatus) Apply(s Surface)           { s.ShowStatus(e.Message) }
func (Clear) Apply(s Surface)                  { s.Clear() }
func (e RenderTranscript) Apply(s Surface)     { s.RenderTranscript(e.Text) }
func (e RevealExports) Apply(s Surface)        { s.RevealExports(e.Formats) }
func (e SetTranscriptVisible) Apply(s Surface) { s.SetTranscriptVisible(e.Visible) }
func (SendRequest) Apply(Surface)              {}
