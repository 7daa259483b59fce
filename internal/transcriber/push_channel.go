package transcriber

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

type PushEventKind int

const (
	PushOpened PushEventKind = iota
	PushMessage
	PushClosed
)

func (k PushEventKind) String() string {
	switch k {
	case PushOpened:
		return "open"
	case PushMessage:
		return "message"
	case PushClosed:
		return "close"
	default:
		return "unknown"
	}
}

// PushEvent is one transition of the push channel
type PushEvent struct {
	Kind PushEventKind
	Data []byte
	Err  error
}

// PushChannel is the long-lived WebSocket over which the service may deliver
// results independently of the HTTP response. It does not reconnect: once
// the connection drops, PushClosed is emitted and Events is closed.
type PushChannel struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	conn    *websocket.Conn
	eventCh chan PushEvent
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	used    bool
}

// NewPushChannel creates a channel for a ws:// or wss:// URL
func NewPushChannel(rawURL string) *PushChannel {
	return &PushChannel{
		url:     rawURL,
		header:  http.Header{},
		dialer:  websocket.DefaultDialer,
		eventCh: make(chan PushEvent, 16),
	}
}

// PushURLFromBase derives the push URL from the service base URL
// (https://host -> wss://host, http://host -> ws://host).
func PushURLFromBase(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %s", u.Scheme, baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %s", baseURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func (p *PushChannel) URL() string {
	return p.url
}

// Start dials the service and starts the reader. It emits PushOpened on
// success; on failure Events is closed. A channel can be started once.
func (p *PushChannel) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used {
		return fmt.Errorf("push channel already started")
	}
	p.used = true

	p.ctx, p.cancel = context.WithCancel(ctx)

	log.Printf("push: connecting to %s", p.url)
	conn, resp, err := p.dialer.DialContext(p.ctx, p.url, p.header)
	if err != nil {
		if resp != nil {
			log.Printf("push: dial failed with status %d", resp.StatusCode)
		}
		p.cancel()
		close(p.eventCh)
		return fmt.Errorf("websocket dial: %w", err)
	}
	p.conn = conn
	p.started = true

	log.Printf("push: connection opened")
	p.eventCh <- PushEvent{Kind: PushOpened}

	p.wg.Add(1)
	go p.readLoop(conn)

	return nil
}

func (p *PushChannel) readLoop(conn *websocket.Conn) {
	defer p.wg.Done()
	defer close(p.eventCh)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-p.ctx.Done():
				log.Printf("push: connection closed")
				p.emit(PushEvent{Kind: PushClosed})
			default:
				log.Printf("push: connection closed: %v", err)
				p.emit(PushEvent{Kind: PushClosed, Err: err})
			}
			return
		}

		log.Printf("push: message received (%d bytes)", len(message))
		if !p.emit(PushEvent{Kind: PushMessage, Data: message}) {
			return
		}
	}
}

// emit delivers ev unless the channel is being closed. It reports whether
// the reader should keep going.
func (p *PushChannel) emit(ev PushEvent) bool {
	select {
	case p.eventCh <- ev:
		return ev.Kind != PushClosed
	case <-p.ctx.Done():
		return false
	}
}

// Events returns the channel of open/message/close transitions. It is
// closed after the connection ends.
func (p *PushChannel) Events() <-chan PushEvent {
	return p.eventCh
}

// Close sends a close frame and waits for the reader to finish
func (p *PushChannel) Close() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}
	conn := p.conn
	p.started = false
	p.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}

	p.wg.Wait()
	return nil
}
