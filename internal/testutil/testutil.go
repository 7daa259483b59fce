package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/getsubs/internal/config"
)

// Sample subtitle payloads shared across tests
const (
	SampleTranscript = "Hello world."
	SampleSRT        = "1\n00:00:00,000 --> 00:00:02,000\nHello world.\n"
	SampleVTT        = "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nHello world.\n"
)

// TestConfig returns a valid configuration pointing at serviceURL
func TestConfig(serviceURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Service.BaseURL = serviceURL
	cfg.Service.RequestTimeout = 5 * time.Second
	cfg.Service.ResultTimeout = 5 * time.Second
	cfg.Notifications.Type = "none"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}
