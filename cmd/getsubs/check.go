package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/deps"
	"github.com/leonardotrapani/getsubs/internal/session"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
	"github.com/spf13/cobra"
)

const defaultSampleURL = "https://raw.githubusercontent.com/mozilla/DeepSpeech/master/data/smoke_test/LDC93S1.wav"

type checkOptions struct {
	audioURL   string
	submit     bool
	timeout    time.Duration
	outputPath string
}

type checkResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
}

type checkReport struct {
	StartedAt  time.Time     `json:"started_at"`
	ServiceURL string        `json:"service_url"`
	PushURL    string        `json:"push_url,omitempty"`
	Results    []checkResult `json:"results"`
	PassCount  int           `json:"pass_count"`
	FailCount  int           `json:"fail_count"`
	SkipCount  int           `json:"skip_count"`
	TotalCount int           `json:"total_count"`
}

func checkCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the configuration and connectivity to the transcription service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.submit, "submit", false, "Also submit a sample and wait for its subtitles")
	cmd.Flags().StringVar(&opts.audioURL, "audio-url", defaultSampleURL, "Audio URL to submit with --submit")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Per-check timeout")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "Write JSON report to file")

	return cmd
}

func runCheck(ctx context.Context, opts checkOptions) error {
	if opts.timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	startedAt := time.Now().UTC()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	results := []checkResult{
		checkConfig(cfg),
		checkNotifications(cfg),
		checkPush(ctx, cfg, opts.timeout),
	}
	if opts.submit {
		results = append(results, checkSubmit(ctx, cfg, opts))
	} else {
		results = append(results, checkResult{Name: "submit", Status: "skip", Detail: "use --submit"})
	}

	pushURL, _ := cfg.PushURL()
	report := summarizeReport(startedAt, cfg.SubmitURL(), pushURL, results)
	printReport(report)

	if opts.outputPath != "" {
		if err := writeReport(opts.outputPath, report); err != nil {
			return err
		}
	}

	if report.FailCount > 0 {
		return fmt.Errorf("%d checks failed", report.FailCount)
	}
	return nil
}

func checkConfig(cfg *config.Config) checkResult {
	result := checkResult{Name: "config", Status: "pass"}
	if err := cfg.Validate(); err != nil {
		result.Status = "fail"
		result.Error = err.Error()
		return result
	}
	result.Detail = fmt.Sprintf("backend=%s formats=%s", cfg.Transcription.Backend, strings.Join(cfg.Export.Formats, ","))
	return result
}

func checkNotifications(cfg *config.Config) checkResult {
	result := checkResult{Name: "notifications", Status: "pass", Detail: cfg.Notifications.Type}
	if !cfg.Notifications.Enabled {
		result.Status = "skip"
		result.Detail = "notifications disabled"
		return result
	}

	for _, tool := range deps.ForNotifications(cfg.Notifications.Type) {
		if !tool.Installed {
			result.Status = "fail"
			result.Error = tool.Name + " not found in PATH"
			return result
		}
		result.Detail += " " + tool.Name
		if tool.Version != "" {
			result.Detail += " (" + tool.Version + ")"
		}
	}
	return result
}

func checkPush(ctx context.Context, cfg *config.Config, timeout time.Duration) checkResult {
	result := checkResult{Name: "push", Status: "fail"}

	pushURL, err := cfg.PushURL()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if pushURL == "" {
		result.Status = "skip"
		result.Detail = "push disabled"
		return result
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	push := transcriber.NewPushChannel(pushURL)
	err = push.Start(dialCtx)
	result.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer push.Close()

	ev := <-push.Events()
	if ev.Kind != transcriber.PushOpened {
		result.Error = fmt.Sprintf("unexpected first event %s", ev.Kind)
		return result
	}

	result.Status = "pass"
	result.Detail = pushURL
	return result
}

func checkSubmit(ctx context.Context, cfg *config.Config, opts checkOptions) checkResult {
	result := checkResult{Name: "submit", Status: "fail"}
	if err := cfg.Validate(); err != nil {
		result.Status = "skip"
		result.Detail = "invalid configuration"
		return result
	}

	testCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	coord, stop, err := startSession(testCtx, cfg, session.NopSurface{})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer stop()

	start := time.Now()
	if _, err := coord.Submit(subtitles.Submission{URL: opts.audioURL}); err != nil {
		result.Error = err.Error()
		return result
	}
	snap, err := coord.Wait(testCtx)
	result.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = "pass"
	result.Detail = describeSnapshot(snap)
	return result
}

func describeSnapshot(snap session.Snapshot) string {
	formats := make([]string, len(snap.Formats))
	for i, f := range snap.Formats {
		formats[i] = string(f)
	}
	return fmt.Sprintf("source=%s name=%s formats=%s transcript=%q",
		snap.Source, snap.Name, strings.Join(formats, ","), truncateString(snap.Transcript, 80))
}

func summarizeReport(startedAt time.Time, serviceURL, pushURL string, results []checkResult) checkReport {
	report := checkReport{
		StartedAt:  startedAt,
		ServiceURL: serviceURL,
		PushURL:    pushURL,
		Results:    results,
	}
	for _, r := range results {
		report.TotalCount++
		switch r.Status {
		case "pass":
			report.PassCount++
		case "fail":
			report.FailCount++
		case "skip":
			report.SkipCount++
		}
	}
	return report
}

func printReport(report checkReport) {
	fmt.Printf("check: total=%d pass=%d fail=%d skip=%d\n", report.TotalCount, report.PassCount, report.FailCount, report.SkipCount)
	fmt.Printf("service: %s\n", report.ServiceURL)
	for _, r := range report.Results {
		line := fmt.Sprintf("%s %s", r.Status, r.Name)
		if r.DurationMS > 0 {
			line += fmt.Sprintf(" %dms", r.DurationMS)
		}
		if r.Error != "" {
			line += fmt.Sprintf(" error=%s", truncateString(r.Error, 160))
		}
		if r.Detail != "" {
			line += " " + r.Detail
		}
		fmt.Println(line)
	}
}

func writeReport(path string, report checkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
