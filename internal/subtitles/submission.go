package subtitles

import (
	"errors"
	"path/filepath"
	"strings"
)

// FallbackName is used when neither the URL nor the file yields a name.
const FallbackName = "audio"

var ErrMissingInput = errors.New("missing input: provide an audio URL or a file")

// Submission is the user-provided audio reference.
type Submission struct {
	URL      string
	FilePath string
}

// Validate reports ErrMissingInput when neither form is populated.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.URL) == "" && strings.TrimSpace(s.FilePath) == "" {
		return ErrMissingInput
	}
	return nil
}

// Normalize trims both fields and drops the URL when a file is also given:
// the file is what gets uploaded.
func (s Submission) Normalize() Submission {
	s.URL = strings.TrimSpace(s.URL)
	s.FilePath = strings.TrimSpace(s.FilePath)
	if s.FilePath != "" {
		s.URL = ""
	}
	return s
}

func (s Submission) IsFile() bool {
	return strings.TrimSpace(s.FilePath) != ""
}

// String is used in logs.
func (s Submission) String() string {
	if s.IsFile() {
		return "file:" + s.FilePath
	}
	return "url:" + s.URL
}

// AudioName derives the export filename stem: the URL's trailing path
// segment, else the file's name, else FallbackName. Callers pass a
// normalized submission, so when both a URL and a file were given the
// exports are named after the uploaded file rather than the URL.
func AudioName(s Submission) string {
	if s.URL != "" {
		parts := strings.Split(s.URL, "/")
		if last := parts[len(parts)-1]; last != "" {
			return last
		}
	}
	if s.FilePath != "" {
		if base := filepath.Base(s.FilePath); base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	return FallbackName
}
