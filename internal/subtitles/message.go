package subtitles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON      = errors.New("message is not valid JSON")
	ErrNoTranscription  = errors.New("message carries no payload.transcription")
	ErrMalformedPayload = errors.New("malformed transcription payload")
)

// Message is the result of parsing a response body or push frame.
// It is either ValidResult or Unrecognized.
type Message interface {
	isMessage()
}

// ValidResult carries a usable transcription result.
type ValidResult struct {
	Result TranscriptionResult
}

// Unrecognized means the message holds nothing usable; Reason says why.
type Unrecognized struct {
	Reason error
}

func (ValidResult) isMessage()  {}
func (Unrecognized) isMessage() {}

type envelope struct {
	Payload json.RawMessage `json:"payload"`
}

type payload struct {
	Transcription json.RawMessage `json:"transcription"`
}

type rawTranscription struct {
	FullTranscript *string           `json:"full_transcript"`
	Subtitles      []json.RawMessage `json:"subtitles"`
}

type rawSubtitle struct {
	Format    *string `json:"format"`
	Subtitles *string `json:"subtitles"`
}

// ParseMessage strictly validates raw against the
// {"payload":{"transcription":{...}}} shape. It never panics.
func ParseMessage(raw []byte) Message {
	if !json.Valid(raw) {
		return Unrecognized{Reason: ErrInvalidJSON}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || isNull(env.Payload) {
		return Unrecognized{Reason: ErrNoTranscription}
	}

	var p payload
	if err := json.Unmarshal(env.Payload, &p); err != nil || isNull(p.Transcription) {
		return Unrecognized{Reason: ErrNoTranscription}
	}

	result, err := parseTranscription(p.Transcription)
	if err != nil {
		return Unrecognized{Reason: err}
	}
	return ValidResult{Result: result}
}

func parseTranscription(data json.RawMessage) (TranscriptionResult, error) {
	var rt rawTranscription
	if err := json.Unmarshal(data, &rt); err != nil {
		return TranscriptionResult{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if rt.FullTranscript == nil {
		return TranscriptionResult{}, fmt.Errorf("%w: missing full_transcript", ErrMalformedPayload)
	}
	if rt.Subtitles == nil {
		return TranscriptionResult{}, fmt.Errorf("%w: missing subtitles", ErrMalformedPayload)
	}

	result := TranscriptionResult{FullTranscript: *rt.FullTranscript}
	for _, entry := range rt.Subtitles {
		var rs rawSubtitle
		if err := json.Unmarshal(entry, &rs); err != nil {
			continue
		}
		if rs.Format == nil || rs.Subtitles == nil {
			continue
		}
		f := Format(*rs.Format)
		if !f.Valid() {
			continue
		}
		result.Subtitles = append(result.Subtitles, Subtitle{Format: f, Subtitles: *rs.Subtitles})
	}

	if len(result.Subtitles) == 0 {
		return TranscriptionResult{}, fmt.Errorf("%w: no usable subtitles entry", ErrMalformedPayload)
	}
	return result, nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
