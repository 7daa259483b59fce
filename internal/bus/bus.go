package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "getsubs.pid"
const ProtoVer = "1.0"

// submit replies as soon as the request slot opens
const replyTimeout = 30 * time.Second

type socketManager struct {
	path string
}

type pidManager struct {
	path string
}

func getRuntimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "getsubs"), nil
}

func getSockPath() (string, error) {
	dir, err := getRuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := getRuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// SockPath returns ~/.cache/getsubs/control.sock
func SockPath() (string, error) {
	return getSockPath()
}

func newSocketManager() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func newPidManager() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from a previous run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

func (s *socketManager) send(cmd Command) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := fmt.Fprintf(c, "%s\n", cmd); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand writes cmd as one line and returns the daemon's reply line
func SendCommand(cmd Command) (string, error) {
	sm, err := newSocketManager()
	if err != nil {
		return "", err
	}
	return sm.send(cmd)
}

// Call sends cmd and parses the reply. ERR replies come back as *RemoteError.
func Call(cmd Command) (Reply, error) {
	line, err := SendCommand(cmd)
	if err != nil {
		return Reply{}, err
	}
	reply, err := ParseReply(line)
	if err != nil {
		return Reply{}, err
	}
	return reply, reply.Err()
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
