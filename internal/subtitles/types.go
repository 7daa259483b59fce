package subtitles

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies a subtitle encoding delivered by the service.
type Format string

const (
	SRT Format = "srt"
	VTT Format = "vtt"
)

// Formats lists every format the service delivers, in export order.
var Formats = []Format{SRT, VTT}

var ErrUnknownFormat = errors.New("unknown subtitle format")

// ParseFormat accepts "srt"/"vtt" in any case, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

func (f Format) Valid() bool {
	return f == SRT || f == VTT
}

// MediaType is the content type used for exported files.
func (f Format) MediaType() string {
	return "text/" + string(f)
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Subtitle is one entry of the service's subtitles list.
type Subtitle struct {
	Format    Format `json:"format"`
	Subtitles string `json:"subtitles"`
}

// TranscriptionResult is the payload delivered on either channel.
type TranscriptionResult struct {
	FullTranscript string     `json:"full_transcript"`
	Subtitles      []Subtitle `json:"subtitles"`
}

// Lookup returns the first entry with the given format.
func (r TranscriptionResult) Lookup(f Format) (Subtitle, bool) {
	for _, s := range r.Subtitles {
		if s.Format == f {
			return s, true
		}
	}
	return Subtitle{}, false
}

// AvailableFormats returns the known formats present in the result.
func (r TranscriptionResult) AvailableFormats() []Format {
	var out []Format
	for _, f := range Formats {
		if _, ok := r.Lookup(f); ok {
			out = append(out, f)
		}
	}
	return out
}
