package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
)

// Submitter sends one submission and waits for the service's response.
// A nil result with a nil error means the request was accepted and the
// result will arrive over the push channel.
type Submitter interface {
	Send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error)

func (f SubmitterFunc) Send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error) {
	return f(ctx, sub)
}

const (
	BackendService = "service"
	BackendOpenAI  = "openai"
)

// Configuration for the submission backends
type Config struct {
	Backend string

	// service backend
	Endpoint string
	Timeout  time.Duration

	// openai backend
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// New creates the submitter for config.Backend
func New(config Config) (Submitter, error) {
	switch config.Backend {
	case BackendService, "":
		if config.Endpoint == "" {
			return nil, fmt.Errorf("service endpoint required")
		}
		return NewServiceAdapter(config.Endpoint, config.Timeout), nil

	case BackendOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(config), nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", config.Backend)
	}
}
