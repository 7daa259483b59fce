package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/leonardotrapani/getsubs/internal/bus"
	"github.com/leonardotrapani/getsubs/internal/config"
	"github.com/leonardotrapani/getsubs/internal/notify"
	"github.com/leonardotrapani/getsubs/internal/session"
	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

// Daemon owns one coordinator and one push channel for the lifetime of
// the process and serves control commands over the bus socket.
type Daemon struct {
	config *config.Manager
	coord  *session.Coordinator
	push   *transcriber.PushChannel

	ctx    context.Context
	cancel context.CancelFunc
}

func New(configPath string) (*Daemon, error) {
	manager, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		config: manager,
		ctx:    ctx,
		cancel: cancel,
	}
	d.coord = session.New(transcriber.SubmitterFunc(d.send), notifierSurface{notifier: d.notifier})
	return d, nil
}

// send builds the submitter from the current config so that reloads apply
// to the next submission
func (d *Daemon) send(ctx context.Context, sub subtitles.Submission) (*subtitles.TranscriptionResult, error) {
	cfg := d.config.GetConfig()
	submitter, err := transcriber.New(cfg.ToTranscriberConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create submitter: %w", err)
	}
	return submitter.Send(ctx, sub)
}

func (d *Daemon) notifier() notify.Notifier {
	return notifierFor(d.config.GetConfig())
}

func notifierFor(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(cfg.Notifications.Type, cfg.Notifications.Messages.Resolve())
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	d.start()
	defer d.shutdown()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// start brings up config watching, the coordinator and the push channel
func (d *Daemon) start() {
	d.config.OnReload(func(cfg *config.Config) {
		go notifierFor(cfg).Send(notify.MsgConfigReloaded)
	})
	if err := d.config.StartWatching(d.ctx); err != nil {
		log.Printf("Failed to watch config: %v", err)
	}

	d.coord.Run(d.ctx)

	pushURL, err := d.config.GetConfig().PushURL()
	if err != nil {
		log.Printf("Push channel disabled: %v", err)
		return
	}
	if pushURL == "" {
		log.Printf("Push channel disabled by configuration")
		return
	}

	push := transcriber.NewPushChannel(pushURL)
	if err := push.Start(d.ctx); err != nil {
		log.Printf("Push channel unavailable, results will only arrive over HTTP: %v", err)
		return
	}
	d.push = push
	d.coord.Subscribe(push.Events())
}

func (d *Daemon) shutdown() {
	d.cancel()
	if d.push != nil {
		d.push.Close()
	}
	d.coord.Stop()
	d.config.Stop()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "%s\n", bus.ErrReply("read_error", err))
		return
	}

	fmt.Fprintf(c, "%s\n", d.handleLine(line))
}

// handleLine executes one command line and returns the reply line
func (d *Daemon) handleLine(line string) string {
	cmd, err := bus.ParseCommand(line)
	if err != nil {
		log.Printf("Bad command %q: %v", strings.TrimSpace(line), err)
		return bus.ErrReply("bad_command", err)
	}

	switch cmd.Name {
	case bus.CmdSubmit:
		return d.submit(cmd.Args[0], cmd.Args[1])
	case bus.CmdStatus:
		return statusReply(d.coord.Snapshot())
	case bus.CmdExport:
		return d.export(cmd.Args[0], cmd.Args[1])
	case bus.CmdTranscript:
		snap := d.coord.Snapshot()
		if snap.State != session.Resolved {
			return bus.ErrReply("not_ready", session.ErrNotReady)
		}
		return bus.StatusReply(bus.Field{Key: "transcript", Value: snap.Transcript})
	case bus.CmdToggle:
		visible, err := d.coord.ToggleTranscript()
		if err != nil {
			return bus.ErrReply(errorCode(err), err)
		}
		return bus.StatusReply(bus.Field{Key: "transcript_visible", Value: strconv.FormatBool(visible)})
	case bus.CmdVersion:
		return bus.StatusReply(bus.Field{Key: "proto", Value: bus.ProtoVer})
	case bus.CmdQuit:
		d.cancel()
		return bus.OKReply("quitting")
	default:
		return bus.ErrReply("bad_command", bus.ErrUnknownCommand)
	}
}

func (d *Daemon) submit(kind, target string) string {
	var sub subtitles.Submission
	if kind == "file" {
		sub.FilePath = target
	} else {
		sub.URL = target
	}

	id, err := d.coord.Submit(sub)
	if err != nil {
		log.Printf("Submit rejected: %v", err)
		return bus.ErrReply(errorCode(err), err)
	}
	return bus.OKReply("submitted " + id)
}

func (d *Daemon) export(format, dir string) string {
	f, err := subtitles.ParseFormat(format)
	if err != nil {
		return bus.ErrReply(errorCode(err), err)
	}

	file, err := d.coord.Export(f)
	if err != nil {
		return bus.ErrReply(errorCode(err), err)
	}

	if dir == "" {
		dir = d.config.GetConfig().Export.OutputDir
	}
	path, err := subtitles.WriteFile(dir, file)
	if err != nil {
		log.Printf("Export failed: %v", err)
		return bus.ErrReply("write_failed", err)
	}

	log.Printf("Exported %s (%s) to %s", file.Name, file.ContentType, path)
	return bus.OKReply(path)
}

func statusReply(snap session.Snapshot) string {
	formats := make([]string, len(snap.Formats))
	for i, f := range snap.Formats {
		formats[i] = string(f)
	}

	errMsg := ""
	if snap.Err != nil {
		errMsg = snap.Err.Error()
	}

	return bus.StatusReply(
		bus.Field{Key: "state", Value: snap.State.String()},
		bus.Field{Key: "id", Value: snap.ID},
		bus.Field{Key: "source", Value: string(snap.Source)},
		bus.Field{Key: "name", Value: snap.Name},
		bus.Field{Key: "formats", Value: strings.Join(formats, ",")},
		bus.Field{Key: "transcript_visible", Value: strconv.FormatBool(snap.TranscriptVisible)},
		bus.Field{Key: "error", Value: errMsg},
	)
}

// errorCode maps an error to the ERR kind of a reply
func errorCode(err error) string {
	switch {
	case errors.Is(err, subtitles.ErrMissingInput):
		return "missing_input"
	case errors.Is(err, session.ErrBusy):
		return "busy"
	case errors.Is(err, session.ErrNotReady):
		return "not_ready"
	case errors.Is(err, session.ErrStopped):
		return "stopped"
	case errors.Is(err, subtitles.ErrUnknownFormat):
		return "unknown_format"
	case errors.Is(err, subtitles.ErrFormatUnavailable):
		return "format_unavailable"
	case errors.Is(err, session.ErrNoDelivery):
		return "no_delivery"
	case transcriber.IsInputError(err):
		return "input_error"
	case transcriber.IsTransportFailure(err):
		return "transport_failure"
	default:
		return "internal"
	}
}

// notifierSurface turns coordinator effects into notifications
type notifierSurface struct {
	session.NopSurface
	notifier func() notify.Notifier
}

func (s notifierSurface) ShowWarning(visible bool) {
	if visible {
		go s.notifier().Send(notify.MsgMissingInput)
	}
}

func (s notifierSurface) SetProcessing(on bool) {
	if on {
		go s.notifier().Send(notify.MsgProcessing)
	}
}

func (s notifierSurface) ShowStatus(msg string) {
	switch msg {
	case "":
	case session.StatusFetchFailed:
		go s.notifier().Send(notify.MsgTransportFailure)
	default:
		go s.notifier().Error(msg)
	}
}

func (s notifierSurface) RevealExports(formats []subtitles.Format) {
	if len(formats) > 0 {
		go s.notifier().Send(notify.MsgResultReady)
	}
}
