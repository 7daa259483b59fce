package config

import "time"

const (
	DefaultBaseURL    = "https://getsubtitlesserverv2.onrender.com"
	DefaultSubmitPath = "/get-subtitles"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        DefaultBaseURL,
			SubmitPath:     DefaultSubmitPath,
			PushURL:        "",
			PushEnabled:    true,
			RequestTimeout: 10 * time.Minute,
			ResultTimeout:  15 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			Backend:  "service",
			Model:    "whisper-1",
			Language: "",
		},
		Providers: make(map[string]ProviderConfig),
		Export: ExportConfig{
			OutputDir: ".",
			Formats:   []string{"srt", "vtt"},
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "log",
		},
	}
}
