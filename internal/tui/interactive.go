package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/leonardotrapani/getsubs/internal/session"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

type sourceKind string

const (
	sourceURL  sourceKind = "url"
	sourceFile sourceKind = "file"
)

type action string

const (
	actionSaveSRT    action = "save_srt"
	actionSaveVTT    action = "save_vtt"
	actionTranscript action = "transcript"
	actionNew        action = "new"
	actionQuit       action = "quit"
)

// Interactive drives a coordinator from huh forms: pick a source, wait
// behind a spinner, then export or toggle the transcript.
type Interactive struct {
	Coordinator *session.Coordinator
	Terminal    *Terminal
	OutputDir   string
}

func (i *Interactive) Run(ctx context.Context) error {
	// the spinner stands in for the processing line
	i.Terminal.Quiet(true)
	defer i.Terminal.Quiet(false)

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	for {
		sub, err := askSource()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		if _, err := i.Coordinator.Submit(sub); err != nil {
			if errors.Is(err, subtitles.ErrMissingInput) {
				continue
			}
			return err
		}

		resolved, err := i.await(ctx)
		if err != nil {
			return err
		}
		if !resolved {
			continue
		}

		again, err := i.actions()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if !again {
			return nil
		}
		fmt.Println()
	}
}

// await waits for the current submission. It returns false when the
// request failed and the user chose not to keep waiting for the push.
func (i *Interactive) await(ctx context.Context) (bool, error) {
	var waitErr error
	err := spinner.New().
		Title(ProcessingMessage).
		Context(ctx).
		Action(func() { _, waitErr = i.Coordinator.Wait(ctx) }).
		Run()
	if err != nil {
		return false, err
	}
	if waitErr == nil {
		return true, nil
	}
	if errors.Is(waitErr, session.ErrNoDelivery) || transcriber.IsInputError(waitErr) {
		fmt.Println(StyleError.Render(waitErr.Error()))
		return false, nil
	}
	if !session.CanAwaitPush(waitErr) {
		return false, waitErr
	}

	fmt.Println(StyleMuted.Render(waitErr.Error()))
	keepWaiting := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep waiting for a pushed result?").
				Description("The service may still deliver subtitles over the push channel").
				Value(&keepWaiting),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil || !keepWaiting {
		return false, nil
	}

	err = spinner.New().
		Title("Waiting for push delivery...").
		Context(ctx).
		Action(func() { _, waitErr = i.Coordinator.WaitResolved(ctx) }).
		Run()
	if err != nil {
		return false, err
	}
	if errors.Is(waitErr, session.ErrNoDelivery) {
		fmt.Println(StyleError.Render(waitErr.Error()))
	}
	return waitErr == nil, nil
}

func (i *Interactive) actions() (bool, error) {
	for {
		snap := i.Coordinator.Snapshot()
		selected, err := selectAction(snap)
		if err != nil {
			return false, err
		}

		switch selected {
		case actionSaveSRT:
			i.save(subtitles.SRT)
		case actionSaveVTT:
			i.save(subtitles.VTT)
		case actionTranscript:
			if _, err := i.Coordinator.ToggleTranscript(); err != nil {
				fmt.Println(StyleError.Render(err.Error()))
			}
		case actionNew:
			return true, nil
		case actionQuit:
			return false, nil
		}
	}
}

func (i *Interactive) save(f subtitles.Format) {
	file, err := i.Coordinator.Export(f)
	if err != nil {
		fmt.Println(StyleError.Render(err.Error()))
		return
	}
	path, err := subtitles.WriteFile(i.OutputDir, file)
	if err != nil {
		fmt.Println(StyleError.Render(err.Error()))
		return
	}
	fmt.Println(StyleSuccess.Render("Saved " + path))
}

func askSource() (subtitles.Submission, error) {
	kind := sourceURL
	kindForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[sourceKind]().
				Title("Audio source").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(
					huh.NewOption("Audio URL", sourceURL),
					huh.NewOption("Local file", sourceFile),
				).
				Value(&kind),
		),
	).WithTheme(getTheme())
	if err := kindForm.Run(); err != nil {
		return subtitles.Submission{}, err
	}

	var value string
	input := huh.NewInput().Value(&value)
	if kind == sourceURL {
		input = input.Title("Audio URL").Placeholder("https://example.com/audio.mp3")
	} else {
		input = input.Title("Audio file").Placeholder("/path/to/audio.mp3").Validate(validateFile)
	}

	if err := huh.NewForm(huh.NewGroup(input)).WithTheme(getTheme()).Run(); err != nil {
		return subtitles.Submission{}, err
	}

	if kind == sourceFile {
		return subtitles.Submission{FilePath: value}, nil
	}
	return subtitles.Submission{URL: value}, nil
}

// validateFile accepts an empty value so the missing input warning can fire
func validateFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func actionOptions(snap session.Snapshot) []huh.Option[action] {
	var options []huh.Option[action]
	for _, f := range snap.Formats {
		label := fmt.Sprintf("Save %s (%s%s)", strings.ToUpper(string(f)), snap.Name, f.Extension())
		switch f {
		case subtitles.SRT:
			options = append(options, huh.NewOption(label, actionSaveSRT))
		case subtitles.VTT:
			options = append(options, huh.NewOption(label, actionSaveVTT))
		}
	}

	toggle := "Hide transcript"
	if !snap.TranscriptVisible {
		toggle = "Show transcript"
	}
	options = append(options,
		huh.NewOption(toggle, actionTranscript),
		huh.NewOption("New submission", actionNew),
		huh.NewOption("Quit", actionQuit),
	)
	return options
}

func selectAction(snap session.Snapshot) (action, error) {
	var selected action
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[action]().
				Title("What next?").
				Options(actionOptions(snap)...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}
