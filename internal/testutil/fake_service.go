package testutil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// FakeRequest is one recorded POST /get-subtitles
type FakeRequest struct {
	AudioURL string
	FileName string
	FileData []byte
}

// FakeService is an in-process stand-in for the transcription service:
// POST /get-subtitles answers with a configurable response and every other
// path upgrades to the push WebSocket.
type FakeService struct {
	Server *httptest.Server

	mu        sync.Mutex
	status    int
	body      string
	hold      chan struct{}
	release   func()
	requests  []FakeRequest
	conns     []*websocket.Conn
	connected chan struct{}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	f := &FakeService{
		status:    http.StatusOK,
		body:      AcceptedJSON,
		connected: make(chan struct{}, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/get-subtitles", f.handleSubmit)
	mux.HandleFunc("/", f.handlePush)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeService) URL() string {
	return f.Server.URL
}

// PushURL is the WebSocket address of the push endpoint
func (f *FakeService) PushURL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http")
}

// Respond sets the status and body for subsequent submissions
func (f *FakeService) Respond(status int, body string) {
	f.mu.Lock()
	f.status = status
	f.body = body
	f.mu.Unlock()
}

// Hold makes submissions block until the returned release func is called
func (f *FakeService) Hold() (release func()) {
	ch := make(chan struct{})
	var once sync.Once
	release = func() {
		once.Do(func() {
			f.mu.Lock()
			if f.hold == ch {
				f.hold = nil
			}
			f.mu.Unlock()
			close(ch)
		})
	}

	f.mu.Lock()
	f.hold = ch
	f.release = release
	f.mu.Unlock()
	return release
}

func (f *FakeService) Requests() []FakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]FakeRequest, len(f.requests))
	copy(result, f.requests)
	return result
}

func (f *FakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := FakeRequest{AudioURL: r.FormValue("audio_url")}
	if file, header, err := r.FormFile("audio"); err == nil {
		req.FileName = header.Filename
		req.FileData, _ = io.ReadAll(file)
		file.Close()
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	hold := f.hold
	status, body := f.status, f.body
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
		f.mu.Lock()
		status, body = f.status, f.body
		f.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *FakeService) handlePush(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	select {
	case f.connected <- struct{}{}:
	default:
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	for i, c := range f.conns {
		if c == conn {
			f.conns = append(f.conns[:i], f.conns[i+1:]...)
			break
		}
	}
	f.mu.Unlock()
	conn.Close()
}

// WaitForPushClient blocks until a push client has connected
func (f *FakeService) WaitForPushClient(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-f.connected:
	case <-time.After(timeout):
		t.Fatalf("no push client connected within %v", timeout)
	}
}

// Push sends msg as a text frame to every connected push client
func (f *FakeService) Push(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.conns) == 0 {
		return errors.New("no push clients connected")
	}
	for _, conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return err
		}
	}
	return nil
}

// DropPushClients closes every push connection from the server side
func (f *FakeService) DropPushClients() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	f.conns = nil
}

func (f *FakeService) Close() {
	f.DropPushClients()
	f.mu.Lock()
	release := f.release
	f.mu.Unlock()
	if release != nil {
		release()
	}
	f.Server.Close()
}
