package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/getsubs/internal/notify"
)

type Config struct {
	Service       ServiceConfig             `toml:"service"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Export        ExportConfig              `toml:"export"`
	Notifications NotificationsConfig       `toml:"notifications"`
}

// ServiceConfig locates the remote transcription service
type ServiceConfig struct {
	BaseURL        string        `toml:"base_url"`
	SubmitPath     string        `toml:"submit_path"`
	PushURL        string        `toml:"push_url"` // empty = derived from base_url
	PushEnabled    bool          `toml:"push_enabled"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	ResultTimeout  time.Duration `toml:"result_timeout"`
}

type TranscriptionConfig struct {
	Backend  string `toml:"backend"` // "service" or "openai"
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// ProviderConfig holds credentials for a hosted backend
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type ExportConfig struct {
	OutputDir string   `toml:"output_dir"`
	Formats   []string `toml:"formats"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	Processing       MessageConfig `toml:"processing"`
	MissingInput     MessageConfig `toml:"missing_input"`
	TransportFailure MessageConfig `toml:"transport_failure"`
	ResultReady      MessageConfig `toml:"result_ready"`
	ConfigReloaded   MessageConfig `toml:"config_reloaded"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
