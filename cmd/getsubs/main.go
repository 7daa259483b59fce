package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leonardotrapani/getsubs/internal/bus"
	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/daemon"
	"github.com/leonardotrapani/getsubs/internal/tui"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "getsubs",
	Short: "Fetch subtitles for an audio file or URL",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/getsubs/config.toml)")

	rootCmd.AddCommand(
		runCmd(),
		interactiveCmd(),
		serveCmd(),
		submitCmd(),
		statusCmd(),
		exportCmd(),
		transcriptCmd(),
		toggleCmd(),
		stopCmd(),
		versionCmd(),
		configureCmd(),
		checkCmd(),
	)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := daemon.New(configPath)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// send forwards cmd to the daemon and prints the reply line. ERR replies
// become the command's error.
func send(cmd bus.Command, action string) error {
	resp, err := bus.SendCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	reply, err := bus.ParseReply(resp)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if err := reply.Err(); err != nil {
		return err
	}
	fmt.Print(resp)
	return nil
}

func submitCmd() *cobra.Command {
	var audioURL, audioFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit audio to the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if audioFile != "" {
				abs, err := filepath.Abs(audioFile)
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", audioFile, err)
				}
				return send(bus.SubmitFile(abs), "submit")
			}
			return send(bus.SubmitURL(audioURL), "submit")
		},
	}

	cmd.Flags().StringVar(&audioURL, "url", "", "remote audio URL")
	cmd.Flags().StringVar(&audioFile, "file", "", "local audio file")
	cmd.MarkFlagsMutuallyExclusive("url", "file")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get the current request status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.Simple(bus.CmdStatus), "get status")
		},
	}
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <srt|vtt>",
		Short: "Write a subtitle file from the current result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				abs, err := filepath.Abs(output)
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", output, err)
				}
				output = abs
			}
			return send(bus.Export(args[0], output), "export")
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: export.output_dir of the daemon)")

	return cmd
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript",
		Short: "Print the full transcript of the current result",
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := bus.Call(bus.Simple(bus.CmdTranscript))
			if err != nil {
				return fmt.Errorf("failed to get transcript: %w", err)
			}
			fmt.Println(reply.Fields["transcript"])
			return nil
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Show or hide the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.Simple(bus.CmdToggle), "toggle transcript")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.Simple(bus.CmdVersion), "get version")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.Simple(bus.CmdQuit), "stop daemon")
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for getsubs.
This will guide you through setting up:
- The transcription service address and push channel
- The transcription backend (service or OpenAI)
- Export directory and formats
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Load existing config or create default
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Configure(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.SaveTo(path, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps(path)

	return nil
}

func showNextSteps(path string) {
	daemonRunning := false
	if _, err := bus.Call(bus.Simple(bus.CmdVersion)); err == nil {
		daemonRunning = true
	}

	fmt.Println("Next Steps:")
	if daemonRunning {
		fmt.Println("1. The running daemon picks up the new config automatically")
	} else {
		fmt.Println("1. Start the daemon: getsubs serve")
	}
	fmt.Println("2. Fetch subtitles: getsubs run --url https://example.com/audio.mp3")
	fmt.Println()

	fmt.Printf("Config file location: %s\n", path)
}
