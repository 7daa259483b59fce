package tui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/notify"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionService       ConfigSection = "service"
	SectionTranscription ConfigSection = "transcription"
	SectionExport        ConfigSection = "export"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Configure runs the menu-based configuration editor on cfg
func Configure(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render(err.Error()))
				continue
			}
			return &ConfigureResult{Config: cfg}, nil

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionService:
			_ = editService(cfg)

		case SectionTranscription:
			_ = editTranscription(cfg)

		case SectionExport:
			_ = editExport(cfg)

		case SectionNotifications:
			_ = editNotifications(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatServiceLabel(cfg), SectionService),
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatExportLabel(cfg), SectionExport),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func editService(cfg *config.Config) error {
	baseURL := cfg.Service.BaseURL
	pushEnabled := cfg.Service.PushEnabled
	pushURL := cfg.Service.PushURL

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service URL").
				Description("Base URL of the transcription service").
				Value(&baseURL).
				Validate(validateHTTPURL),
			huh.NewConfirm().
				Title("Listen for pushed results?").
				Description("Keeps a WebSocket open so results can arrive before the HTTP response").
				Value(&pushEnabled),
			huh.NewInput().
				Title("Push URL").
				Description("Leave empty to derive it from the service URL").
				Value(&pushURL),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Service.BaseURL = strings.TrimSpace(baseURL)
	cfg.Service.PushEnabled = pushEnabled
	cfg.Service.PushURL = strings.TrimSpace(pushURL)
	return nil
}

func editTranscription(cfg *config.Config) error {
	backend := cfg.Transcription.Backend
	if backend == "" {
		backend = "service"
	}

	backendForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Backend").
				Options(
					huh.NewOption("Remote service (HTTP + push)", "service"),
					huh.NewOption("OpenAI Whisper", "openai"),
				).
				Value(&backend),
		),
	).WithTheme(getTheme())
	if err := backendForm.Run(); err != nil {
		return err
	}
	cfg.Transcription.Backend = backend

	if backend != "openai" {
		return nil
	}

	pc := cfg.Providers["openai"]
	apiKey := pc.APIKey
	model := cfg.Transcription.Model
	language := cfg.Transcription.Language

	keyDesc := "Leave empty to use OPENAI_API_KEY"
	if apiKey != "" {
		keyDesc = "Current: " + maskAPIKey(apiKey)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Model").
				Value(&model),
			huh.NewInput().
				Title("Language").
				Description("Empty for auto-detect, or an ISO-639-1 code like 'en'").
				Value(&language),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	pc.APIKey = strings.TrimSpace(apiKey)
	cfg.Providers["openai"] = pc
	cfg.Transcription.Model = strings.TrimSpace(model)
	cfg.Transcription.Language = strings.TrimSpace(language)
	return nil
}

func editExport(cfg *config.Config) error {
	outputDir := cfg.Export.OutputDir
	formats := cfg.Export.Formats

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output Directory").
				Value(&outputDir),
			huh.NewMultiSelect[string]().
				Title("Formats").
				Description("Formats written by 'getsubs run'").
				Options(
					huh.NewOption("SRT", "srt"),
					huh.NewOption("WebVTT", "vtt"),
				).
				Value(&formats),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Export.OutputDir = strings.TrimSpace(outputDir)
	cfg.Export.Formats = formats
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "log"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Used by the daemon when results arrive or requests fail").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}

func formatServiceLabel(cfg *config.Config) string {
	host := cfg.Service.BaseURL
	if u, err := url.Parse(cfg.Service.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	push := "push off"
	if cfg.Service.PushEnabled {
		push = "push on"
	}
	return fmt.Sprintf("Service: %s (%s)", host, push)
}

func formatTranscriptionLabel(cfg *config.Config) string {
	if cfg.Transcription.Backend == "openai" {
		return fmt.Sprintf("Transcription: OpenAI %s", cfg.Transcription.Model)
	}
	return "Transcription: remote service"
}

func formatExportLabel(cfg *config.Config) string {
	return fmt.Sprintf("Export: %s → %s", strings.Join(cfg.Export.Formats, ", "), cfg.Export.OutputDir)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications: disabled"
	}
	return fmt.Sprintf("Notifications: %s (%d messages)", cfg.Notifications.Type, len(notify.MessageDefs))
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http or https URL")
	}
	return nil
}
