package notify

import (
	"log"
	"os/exec"
)

type Notifier interface {
	Send(mt MessageType)
	Notify(title, message string)
	Error(msg string)
}

// New returns the notifier for kind ("desktop", "log" or "none").
// A nil messages map falls back to the defaults.
func New(kind string, messages map[MessageType]Message) Notifier {
	if messages == nil {
		messages = DefaultMessages()
	}
	switch kind {
	case "desktop":
		return Desktop{Messages: messages}
	case "log":
		return Log{Messages: messages}
	default:
		return Nop{}
	}
}

type Desktop struct {
	Messages map[MessageType]Message
}

func (d Desktop) Send(mt MessageType) {
	msg, ok := lookup(d.Messages, mt)
	if !ok {
		return
	}
	if msg.IsError {
		d.Error(msg.Body)
		return
	}
	d.Notify(msg.Title, msg.Body)
}

func (Desktop) Notify(title, message string) {
	cmd := exec.Command("notify-send", "-a", "getsubs", title, message)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", "getsubs", "-u", "critical", "getsubs", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

// Log writes notifications to the standard logger
type Log struct {
	Messages map[MessageType]Message
}

func (l Log) Send(mt MessageType) {
	msg, ok := lookup(l.Messages, mt)
	if !ok {
		return
	}
	if msg.IsError {
		l.Error(msg.Body)
		return
	}
	l.Notify(msg.Title, msg.Body)
}

func (Log) Notify(title, message string) {
	log.Printf("%s: %s", title, message)
}

func (Log) Error(msg string) {
	log.Printf("getsubs error: %s", msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(MessageType)      {}
func (Nop) Notify(string, string) {}
func (Nop) Error(string)          {}
