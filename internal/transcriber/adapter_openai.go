package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter builds a TranscriptionResult with the OpenAI transcription
// API instead of the subtitles service: one request per response format.
type OpenAIAdapter struct {
	client     *openai.Client
	httpClient *http.Client
	config     Config
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}

	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

// Send transcribes the submission and always returns a result on success;
// the openai backend never defers to the push channel.
func (a *OpenAIAdapter) Send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	audio, name, err := a.loadAudio(ctx, sub)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	text, err := a.transcribe(ctx, audio, name, openai.AudioResponseFormatText)
	if err != nil {
		return nil, err
	}

	result := &subtitles.TranscriptionResult{FullTranscript: strings.TrimSpace(text)}
	formats := map[subtitles.Format]openai.AudioResponseFormat{
		subtitles.SRT: openai.AudioResponseFormatSRT,
		subtitles.VTT: openai.AudioResponseFormatVTT,
	}
	for _, f := range subtitles.Formats {
		content, err := a.transcribe(ctx, audio, name, formats[f])
		if err != nil {
			return nil, err
		}
		result.Subtitles = append(result.Subtitles, subtitles.Subtitle{Format: f, Subtitles: content})
	}

	log.Printf("openai-adapter: transcribed %d bytes in %v", len(audio), time.Since(start))
	return result, nil
}

func (a *OpenAIAdapter) transcribe(ctx context.Context, audio []byte, name string, format openai.AudioResponseFormat) (string, error) {
	req := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(audio),
		FilePath: name,
		Language: a.config.Language,
		Format:   format,
	}

	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Printf("openai-adapter: %s transcription failed: %v", format, err)
		return "", openAIError(err)
	}
	return resp.Text, nil
}

// loadAudio reads the local file or downloads the URL
func (a *OpenAIAdapter) loadAudio(ctx context.Context, sub subtitles.Submission) ([]byte, string, error) {
	name := subtitles.AudioName(sub)

	if sub.IsFile() {
		data, err := os.ReadFile(sub.FilePath)
		if err != nil {
			return nil, "", &InputError{Path: sub.FilePath, Err: err}
		}
		return data, filepath.Base(sub.FilePath), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", newTransportError(fmt.Errorf("download %s: %w", sub.URL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("download %s", sub.URL)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", newTransportError(fmt.Errorf("read download: %w", err))
	}
	log.Printf("openai-adapter: downloaded %d bytes from %s", len(data), sub.URL)
	return data, name, nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &TransportError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return newTransportError(err)
}
