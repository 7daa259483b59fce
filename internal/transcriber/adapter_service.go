package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
)

const (
	fieldAudio    = "audio"
	fieldAudioURL = "audio_url"

	// bytes of an error body kept in TransportError
	maxErrorBody = 512
)

// ServiceAdapter posts submissions to the subtitles service as multipart forms
type ServiceAdapter struct {
	client   *http.Client
	endpoint string
}

// NewServiceAdapter creates an adapter posting to endpoint
// (e.g. https://getsubtitlesserverv2.onrender.com/get-subtitles).
// A zero timeout leaves the request bounded only by its context.
func NewServiceAdapter(endpoint string, timeout time.Duration) *ServiceAdapter {
	return &ServiceAdapter{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

// Send uploads the file (field "audio") or the URL (field "audio_url")
func (a *ServiceAdapter) Send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("service-adapter: request failed after %v: %v", duration, err)
		return nil, newTransportError(fmt.Errorf("post %s: %w", a.endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Printf("service-adapter: service returned status %d: %s", resp.StatusCode, string(bodyBytes))
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(bodyBytes))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("read response: %w", err))
	}

	switch msg := subtitles.ParseMessage(data).(type) {
	case subtitles.ValidResult:
		log.Printf("service-adapter: result received in %v (%d subtitle entries)", duration, len(msg.Result.Subtitles))
		return &msg.Result, nil
	case subtitles.Unrecognized:
		if errors.Is(msg.Reason, subtitles.ErrInvalidJSON) {
			log.Printf("service-adapter: response is not JSON after %v", duration)
			return nil, newTransportError(fmt.Errorf("decode response: %w", msg.Reason))
		}
		log.Printf("service-adapter: accepted in %v without a result (%v), waiting for push delivery", duration, msg.Reason)
	}
	return nil, nil
}

func buildForm(sub subtitles.Submission) (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if sub.IsFile() {
		f, err := os.Open(sub.FilePath)
		if err != nil {
			return nil, "", &InputError{Path: sub.FilePath, Err: err}
		}
		defer f.Close()

		part, err := writer.CreateFormFile(fieldAudio, filepath.Base(sub.FilePath))
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", &InputError{Path: sub.FilePath, Err: err}
		}
	} else {
		if err := writer.WriteField(fieldAudioURL, sub.URL); err != nil {
			return nil, "", fmt.Errorf("write audio_url: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
