package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) Validate() error {
	base, err := url.Parse(c.Service.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("invalid service.base_url: %q (must be an http or https URL)", c.Service.BaseURL)
	}
	if !strings.HasPrefix(c.Service.SubmitPath, "/") {
		return fmt.Errorf("invalid service.submit_path: %q (must start with /)", c.Service.SubmitPath)
	}
	if c.Service.PushURL != "" {
		push, err := url.Parse(c.Service.PushURL)
		if err != nil || (push.Scheme != "ws" && push.Scheme != "wss") || push.Host == "" {
			return fmt.Errorf("invalid service.push_url: %q (must be a ws or wss URL)", c.Service.PushURL)
		}
	}
	if c.Service.RequestTimeout <= 0 {
		return fmt.Errorf("invalid service.request_timeout: %v", c.Service.RequestTimeout)
	}
	if c.Service.ResultTimeout <= 0 {
		return fmt.Errorf("invalid service.result_timeout: %v", c.Service.ResultTimeout)
	}

	switch c.Transcription.Backend {
	case "service":
	case "openai":
		if c.resolveAPIKeyForProvider("openai") == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}
		if c.Transcription.Model == "" {
			return fmt.Errorf("invalid transcription.model: empty")
		}
	default:
		return fmt.Errorf("unsupported transcription.backend: %s (must be service or openai)", c.Transcription.Backend)
	}

	if c.Transcription.Language != "" && !isValidLanguageCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}

	if c.Export.OutputDir == "" {
		return fmt.Errorf("invalid export.output_dir: empty")
	}
	if len(c.Export.Formats) == 0 {
		return fmt.Errorf("invalid export.formats: empty (must have at least one of srt, vtt)")
	}
	if _, err := c.ToExportFormats(); err != nil {
		return err
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func isValidLanguageCode(code string) bool {
	validCodes := map[string]bool{
		"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
		"ru": true, "ja": true, "ko": true, "zh": true, "ar": true, "hi": true,
		"nl": true, "sv": true, "da": true, "no": true, "fi": true, "pl": true,
		"tr": true, "he": true, "th": true, "vi": true, "id": true, "ms": true,
		"uk": true, "cs": true, "hu": true, "ro": true, "bg": true, "hr": true,
		"sk": true, "sl": true, "et": true, "lv": true, "lt": true, "mt": true,
		"cy": true, "ga": true, "eu": true, "ca": true, "gl": true, "is": true,
		"mk": true, "sq": true, "az": true, "be": true, "ka": true, "hy": true,
		"kk": true, "ky": true, "tg": true, "uz": true, "mn": true, "ne": true,
		"si": true, "km": true, "lo": true, "my": true, "fa": true, "ps": true,
		"ur": true, "bn": true, "ta": true, "te": true, "ml": true, "kn": true,
		"gu": true, "pa": true, "or": true, "as": true, "mr": true, "sa": true,
		"sw": true, "yo": true, "ig": true, "ha": true, "zu": true, "xh": true,
		"af": true, "am": true, "mg": true, "so": true, "sn": true, "rw": true,
	}
	return validCodes[code]
}
