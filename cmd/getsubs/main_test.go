package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/session"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/testutil"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

// useConfig points the --config flag at a config for fake
func useConfig(t *testing.T, fake *testutil.FakeService, edits ...func(*config.Config)) *config.Config {
	t.Helper()
	cfg := testutil.TestConfig(fake.URL())
	cfg.Service.PushURL = fake.PushURL()
	for _, edit := range edits {
		edit(cfg)
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	configPath = path
	t.Cleanup(func() { configPath = "" })
	return cfg
}

func TestRunOnce_WritesRequestedFormats(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusOK, testutil.SampleResultJSON())
	useConfig(t, fake)

	outDir := t.TempDir()
	err := runOnce(context.Background(), runOptions{
		audioURL:  "https://host/path/audio123.mp3",
		outputDir: outDir,
	})
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	for name, want := range map[string]string{
		"audio123.mp3.srt": testutil.SampleSRT,
		"audio123.mp3.vtt": testutil.SampleVTT,
	} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}
}

func TestRunOnce_SingleFormat(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusOK, testutil.SampleResultJSON())
	useConfig(t, fake)

	audio := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	err := runOnce(context.Background(), runOptions{
		audioFile: audio,
		outputDir: outDir,
		formats:   []string{"VTT"},
	})
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "clip.wav.vtt")); err != nil {
		t.Errorf("clip.wav.vtt not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "clip.wav.srt")); !os.IsNotExist(err) {
		t.Errorf("clip.wav.srt should not be written")
	}
}

func TestRunOnce_MissingInput(t *testing.T) {
	fake := testutil.NewFakeService(t)
	useConfig(t, fake)

	err := runOnce(context.Background(), runOptions{outputDir: t.TempDir()})
	if !errors.Is(err, subtitles.ErrMissingInput) {
		t.Fatalf("runOnce() error = %v, want ErrMissingInput", err)
	}
	if n := len(fake.Requests()); n != 0 {
		t.Errorf("service called %d times", n)
	}
}

func TestRunOnce_TransportFailure(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusBadGateway, "upstream down")
	useConfig(t, fake)

	outDir := t.TempDir()
	err := runOnce(context.Background(), runOptions{
		audioURL:  "https://host/a.mp3",
		outputDir: outDir,
	})
	if !transcriber.IsTransportFailure(err) {
		t.Fatalf("runOnce() error = %v, want transport failure", err)
	}
	if got := transcriber.StatusCode(err); got != http.StatusBadGateway {
		t.Errorf("status code = %d", got)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("files written after failure: %v", entries)
	}
}

func TestRunOnce_AwaitPushAfterFailure(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusInternalServerError, "boom")
	useConfig(t, fake)

	go func() {
		deadline := time.Now().Add(3 * time.Second)
		for len(fake.Requests()) == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
		_ = fake.Push(testutil.SampleResultJSON())
	}()

	outDir := t.TempDir()
	err := runOnce(context.Background(), runOptions{
		audioURL:  "https://host/late.mp3",
		outputDir: outDir,
		awaitPush: true,
	})
	if err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "late.mp3.srt")); err != nil {
		t.Errorf("late.mp3.srt not written: %v", err)
	}
}

func TestRunOnce_AcceptedWithoutPushChannel(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusOK, testutil.AcceptedJSON)
	useConfig(t, fake, func(c *config.Config) { c.Service.PushEnabled = false })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runOnce(ctx, runOptions{
		audioURL:  "https://host/a.mp3",
		outputDir: t.TempDir(),
		awaitPush: true,
	})
	if !errors.Is(err, session.ErrNoDelivery) {
		t.Fatalf("runOnce() error = %v, want ErrNoDelivery", err)
	}
}

func TestCheckPushAndSubmit(t *testing.T) {
	fake := testutil.NewFakeService(t)
	fake.Respond(http.StatusOK, testutil.SampleResultJSON())
	cfg := testutil.TestConfig(fake.URL())
	cfg.Service.PushURL = fake.PushURL()

	if r := checkConfig(cfg); r.Status != "pass" {
		t.Errorf("config check = %+v", r)
	}

	if r := checkPush(context.Background(), cfg, 2*time.Second); r.Status != "pass" || r.Detail != fake.PushURL() {
		t.Errorf("push check = %+v", r)
	}

	r := checkSubmit(context.Background(), cfg, checkOptions{audioURL: "https://host/a.mp3", timeout: 5 * time.Second})
	if r.Status != "pass" {
		t.Fatalf("submit check = %+v", r)
	}

	cfg.Service.PushEnabled = false
	if r := checkPush(context.Background(), cfg, time.Second); r.Status != "skip" {
		t.Errorf("disabled push check = %+v", r)
	}

	cfg.Service.BaseURL = "not a url"
	if r := checkConfig(cfg); r.Status != "fail" || r.Error == "" {
		t.Errorf("invalid config check = %+v", r)
	}
}

func TestReport(t *testing.T) {
	report := summarizeReport(time.Now(), "http://svc/get-subtitles", "", []checkResult{
		{Name: "config", Status: "pass"},
		{Name: "push", Status: "fail", Error: "dial failed"},
		{Name: "submit", Status: "skip"},
	})
	if report.TotalCount != 3 || report.PassCount != 1 || report.FailCount != 1 || report.SkipCount != 1 {
		t.Errorf("report counts = %+v", report)
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeReport(path, report); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded checkReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded.Results[1].Error != "dial failed" {
		t.Errorf("decoded results = %+v", decoded.Results)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abcdefghij", 4); got != "abcd..." {
		t.Errorf("got %q", got)
	}
}

func TestCheckNotifications(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Notifications.Type = "log"
	if r := checkNotifications(cfg); r.Status != "pass" {
		t.Errorf("log notifications = %+v", r)
	}

	cfg.Notifications.Enabled = false
	if r := checkNotifications(cfg); r.Status != "skip" {
		t.Errorf("disabled notifications = %+v", r)
	}

	cfg.Notifications.Enabled = true
	cfg.Notifications.Type = "desktop"
	t.Setenv("PATH", t.TempDir())
	if r := checkNotifications(cfg); r.Status != "fail" || r.Error != "notify-send not found in PATH" {
		t.Errorf("desktop notifications without notify-send = %+v", r)
	}
}
