package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/session"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
	"github.com/leonardotrapani/getsubs/internal/tui"
	"github.com/spf13/cobra"
)

type runOptions struct {
	audioURL       string
	audioFile      string
	outputDir      string
	formats        []string
	awaitPush      bool
	showTranscript bool
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch subtitles once and write them to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.audioURL, "url", "", "remote audio URL")
	cmd.Flags().StringVar(&opts.audioFile, "file", "", "local audio file")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (default: export.output_dir)")
	cmd.Flags().StringSliceVar(&opts.formats, "format", nil, "formats to write, e.g. srt,vtt (default: export.formats)")
	cmd.Flags().BoolVar(&opts.awaitPush, "await-push", false, "keep waiting for a pushed result when the HTTP request fails")
	cmd.Flags().BoolVar(&opts.showTranscript, "show-transcript", true, "print the full transcript")
	cmd.MarkFlagsMutuallyExclusive("url", "file")

	return cmd
}

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Pick a source, wait for the result and export from a menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInteractive(ctx)
		},
	}
}

// startSession wires a coordinator to the configured submitter and, when
// enabled, to a push channel. The returned func releases both.
func startSession(ctx context.Context, cfg *config.Config, surface session.Surface) (*session.Coordinator, func(), error) {
	submitter, err := transcriber.New(cfg.ToTranscriberConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create submitter: %w", err)
	}

	coord := session.New(submitter, surface)
	coord.Run(ctx)

	var push *transcriber.PushChannel
	pushURL, err := cfg.PushURL()
	switch {
	case err != nil:
		log.Printf("Push channel disabled: %v", err)
	case pushURL != "":
		push = transcriber.NewPushChannel(pushURL)
		if err := push.Start(ctx); err != nil {
			log.Printf("Push channel unavailable: %v", err)
			push = nil
		} else {
			coord.Subscribe(push.Events())
		}
	}

	stop := func() {
		if push != nil {
			push.Close()
		}
		coord.Stop()
	}
	return coord, stop, nil
}

func runOnce(ctx context.Context, opts runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.outputDir != "" {
		cfg.Export.OutputDir = opts.outputDir
	}
	if len(opts.formats) > 0 {
		cfg.Export.Formats = opts.formats
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	formats, err := cfg.ToExportFormats()
	if err != nil {
		return err
	}

	term := tui.NewTerminal(os.Stdout)
	term.Brief(!opts.showTranscript)

	coord, stop, err := startSession(ctx, cfg, term)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := coord.Submit(subtitles.Submission{URL: opts.audioURL, FilePath: opts.audioFile}); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Service.ResultTimeout)
	defer cancel()

	snap, err := coord.Wait(waitCtx)
	if err != nil && opts.awaitPush && session.CanAwaitPush(err) {
		fmt.Println(tui.StyleMuted.Render("Waiting for a pushed result..."))
		snap, err = coord.WaitResolved(waitCtx)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no result within %s", cfg.Service.ResultTimeout)
		}
		return err
	}

	return writeExports(coord, snap, formats, cfg.Export.OutputDir)
}

// writeExports writes every requested format the result carries
func writeExports(coord *session.Coordinator, snap session.Snapshot, formats []subtitles.Format, dir string) error {
	written := 0
	for _, f := range formats {
		file, err := coord.Export(f)
		if errors.Is(err, subtitles.ErrFormatUnavailable) {
			fmt.Println(tui.StyleWarning.Render(fmt.Sprintf("%s: no %s subtitles in result", snap.Name, f)))
			continue
		}
		if err != nil {
			return err
		}

		path, err := subtitles.WriteFile(dir, file)
		if err != nil {
			return err
		}
		fmt.Println(tui.StyleSuccess.Render("Saved " + path))
		written++
	}

	if written == 0 {
		return fmt.Errorf("%w: none of the requested formats", subtitles.ErrFormatUnavailable)
	}
	return nil
}

func runInteractive(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	term := tui.NewTerminal(os.Stdout)
	coord, stop, err := startSession(ctx, cfg, term)
	if err != nil {
		return err
	}
	defer stop()

	app := &tui.Interactive{
		Coordinator: coord,
		Terminal:    term,
		OutputDir:   cfg.Export.OutputDir,
	}
	return app.Run(ctx)
}
