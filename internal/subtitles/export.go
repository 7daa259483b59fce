package subtitles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrFormatUnavailable = errors.New("subtitle format not present in result")

// File is a packaged export ready to be written or served.
type File struct {
	Name        string
	Content     []byte
	ContentType string
}

// Exports holds the payloads selected from a resolved result. Files are
// only packaged when requested.
type Exports struct {
	name     string
	payloads map[Format]string
}

// NewExports selects the first entry of each known format from result.
func NewExports(result TranscriptionResult, name string) *Exports {
	if name == "" {
		name = FallbackName
	}
	e := &Exports{
		name:     name,
		payloads: make(map[Format]string, len(Formats)),
	}
	for _, f := range Formats {
		if s, ok := result.Lookup(f); ok {
			e.payloads[f] = s.Subtitles
		}
	}
	return e
}

func (e *Exports) Name() string {
	return e.name
}

// Formats returns the formats that can be exported, in export order.
func (e *Exports) Formats() []Format {
	var out []Format
	for _, f := range Formats {
		if _, ok := e.payloads[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// File packages the payload for f as <name>.<ext>.
func (e *Exports) File(f Format) (File, error) {
	content, ok := e.payloads[f]
	if !ok {
		return File{}, fmt.Errorf("%w: %s", ErrFormatUnavailable, f)
	}
	return File{
		Name:        e.name + f.Extension(),
		Content:     []byte(content),
		ContentType: f.MediaType(),
	}, nil
}

// WriteFile writes f into dir, creating dir if needed, and returns the path.
func WriteFile(dir string, f File) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", f.Name, err)
	}
	return path, nil
}
