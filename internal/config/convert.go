package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

// SubmitURL is the endpoint the service backend posts to
func (c *Config) SubmitURL() string {
	return strings.TrimRight(c.Service.BaseURL, "/") + c.Service.SubmitPath
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	config := transcriber.Config{
		Backend:  c.Transcription.Backend,
		Endpoint: c.SubmitURL(),
		Timeout:  c.Service.RequestTimeout,
		Model:    c.Transcription.Model,
		Language: c.Transcription.Language,
	}

	if c.Transcription.Backend == transcriber.BackendOpenAI {
		config.APIKey = c.resolveAPIKeyForProvider("openai")
		if pc, ok := c.Providers["openai"]; ok {
			config.BaseURL = pc.BaseURL
		}
	}

	return config
}

// PushURL returns the push channel address, or "" when push is disabled.
// An explicit push_url wins over the one derived from base_url.
func (c *Config) PushURL() (string, error) {
	if !c.Service.PushEnabled {
		return "", nil
	}
	if c.Service.PushURL != "" {
		return c.Service.PushURL, nil
	}
	return transcriber.PushURLFromBase(c.Service.BaseURL)
}

// ToExportFormats parses export.formats, dropping duplicates
func (c *Config) ToExportFormats() ([]subtitles.Format, error) {
	formats := make([]subtitles.Format, 0, len(c.Export.Formats))
	seen := make(map[subtitles.Format]bool)
	for _, name := range c.Export.Formats {
		f, err := subtitles.ParseFormat(name)
		if err != nil {
			return nil, fmt.Errorf("invalid export.formats: %w", err)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// resolveAPIKeyForProvider returns the API key from config, then environment
func (c *Config) resolveAPIKeyForProvider(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}

	if providerName == "openai" {
		return os.Getenv(EnvOpenAIKey)
	}

	return ""
}
