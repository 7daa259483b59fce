package session

import (
	"errors"
	"fmt"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

type State int

const (
	Idle State = iota
	Pending
	Resolved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Source names the channel that delivered a result
type Source string

const (
	SourceHTTP Source = "http"
	SourcePush Source = "push"
)

// Status lines shown when a submission fails
const (
	StatusFetchFailed = "Error fetching subtitles."
	StatusInputFailed = "Error reading audio file."
	StatusNoDelivery  = "Subtitles were accepted but there is no push channel to deliver them."
)

var (
	ErrBusy     = errors.New("a submission is already pending")
	ErrNotReady = errors.New("no resolved result yet")

	// ErrNoDelivery marks a pending slot that no channel can resolve anymore
	ErrNoDelivery = errors.New("no push channel to deliver the result")
)

// CanAwaitPush reports whether a submission that failed with err may still
// be resolved by a push delivery.
func CanAwaitPush(err error) bool {
	return transcriber.IsTransportFailure(err) && !errors.Is(err, ErrNoDelivery)
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrNoDelivery):
		return StatusNoDelivery
	case transcriber.IsInputError(err):
		return StatusInputFailed
	default:
		return StatusFetchFailed
	}
}

// Context is the request slot and everything derived from it. Transitions
// are pure: each returns the next Context and the effects to perform.
type Context struct {
	State             State
	ID                string
	Submission        subtitles.Submission
	Result            *subtitles.TranscriptionResult
	Source            Source
	Exports           *subtitles.Exports
	TranscriptVisible bool

	// Accepted is set once the service answered 2xx without a result
	Accepted bool

	// Err is the transport failure of the current submission, if any
	Err error
}

// Submit validates sub and opens a new request slot. A slot that is
// pending on a live request rejects new submissions; a slot whose request
// already failed can be replaced.
func (c Context) Submit(id string, sub subtitles.Submission) (Context, []Effect, error) {
	if c.State == Pending && c.Err == nil {
		return c, nil, ErrBusy
	}

	effects := []Effect{ShowWarning{Visible: false}}

	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return c, append(effects, ShowWarning{Visible: true}), err
	}

	if c.State != Idle {
		effects = append(effects, Clear{})
	}

	next := Context{
		State:      Pending,
		ID:         id,
		Submission: sub,
	}
	effects = append(effects,
		SetProcessing{On: true},
		SendRequest{ID: id, Submission: sub},
	)
	return next, effects, nil
}

// CompleteRequest handles a 2xx response for submission id. A nil result
// means the service accepted the request and will push the result.
func (c Context) CompleteRequest(id string, result *subtitles.TranscriptionResult) (Context, []Effect) {
	if id != c.ID || c.State != Pending {
		return c, nil
	}
	if result == nil {
		c.Accepted = true
		return c, nil
	}
	return c.Resolve(*result, SourceHTTP)
}

// FailRequest records a failed submission. The processing indicator is
// cleared but the slot stays pending: a push delivery can still resolve it.
func (c Context) FailRequest(id string, err error) (Context, []Effect) {
	if id != c.ID || c.State != Pending {
		return c, nil
	}
	c.Err = err
	return c, []Effect{
		SetProcessing{On: false},
		ShowStatus{Message: statusFor(err)},
	}
}

// PushLost handles the loss of the push channel. A slot that can only be
// resolved by a push fails with ErrNoDelivery; a request still in flight
// is left alone.
func (c Context) PushLost() (Context, []Effect) {
	if c.State != Pending || errors.Is(c.Err, ErrNoDelivery) {
		return c, nil
	}
	switch {
	case c.Err != nil:
		c.Err = fmt.Errorf("%w: %w", ErrNoDelivery, c.Err)
		return c, nil
	case c.Accepted:
		return c.FailRequest(c.ID, ErrNoDelivery)
	default:
		return c, nil
	}
}

// ReceivePush handles a raw push frame. Only a usable result for a pending
// slot has any effect.
func (c Context) ReceivePush(raw []byte) (Context, []Effect) {
	valid, ok := subtitles.ParseMessage(raw).(subtitles.ValidResult)
	if !ok {
		return c, nil
	}
	return c.Resolve(valid.Result, SourcePush)
}

// Resolve materializes result once. Any call after the first is a no-op.
func (c Context) Resolve(result subtitles.TranscriptionResult, source Source) (Context, []Effect) {
	if c.State != Pending {
		return c, nil
	}

	exports := subtitles.NewExports(result, subtitles.AudioName(c.Submission))

	var effects []Effect
	effects = append(effects, SetProcessing{On: false})
	if c.Err != nil {
		effects = append(effects, ShowStatus{Message: ""})
	}
	effects = append(effects,
		RenderTranscript{Text: result.FullTranscript},
		RevealExports{Formats: exports.Formats()},
		SetTranscriptVisible{Visible: true},
	)

	c.State = Resolved
	c.Result = &result
	c.Source = source
	c.Exports = exports
	c.TranscriptVisible = true
	c.Accepted = false
	c.Err = nil
	return c, effects
}

// ToggleTranscript flips the transcript panel of a resolved slot
func (c Context) ToggleTranscript() (Context, []Effect, error) {
	if c.State != Resolved {
		return c, nil, ErrNotReady
	}
	c.TranscriptVisible = !c.TranscriptVisible
	return c, []Effect{SetTranscriptVisible{Visible: c.TranscriptVisible}}, nil
}

// Export packages the subtitle file for f on demand
func (c Context) Export(f subtitles.Format) (subtitles.File, error) {
	if c.State != Resolved || c.Exports == nil {
		return subtitles.File{}, ErrNotReady
	}
	return c.Exports.File(f)
}

// Snapshot is a read-only view of a Context
type Snapshot struct {
	State             State
	ID                string
	Submission        subtitles.Submission
	Name              string
	Transcript        string
	TranscriptVisible bool
	Source            Source
	Formats           []subtitles.Format
	Err               error
}

func (c Context) Snapshot() Snapshot {
	s := Snapshot{
		State:             c.State,
		ID:                c.ID,
		Submission:        c.Submission,
		TranscriptVisible: c.TranscriptVisible,
		Source:            c.Source,
		Err:               c.Err,
	}
	if c.Result != nil {
		s.Transcript = c.Result.FullTranscript
	}
	if c.Exports != nil {
		s.Name = c.Exports.Name()
		s.Formats = c.Exports.Formats()
	}
	return s
}
