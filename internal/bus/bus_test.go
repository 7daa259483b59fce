package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	tempDir := t.TempDir()
	testPidManager := &pidManager{
		path: filepath.Join(tempDir, PidName),
	}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(testPidManager.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}

		expectedPid := strconv.Itoa(os.Getpid())
		if string(pidData) != expectedPid {
			t.Errorf("PID file contains %q, expected %q", string(pidData), expectedPid)
		}

		if err := testPidManager.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer testPidManager.remove()

		if err := testPidManager.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	t.Run("checkExisting with stale PID file", func(t *testing.T) {
		if err := os.WriteFile(testPidManager.path, []byte("99999999"), 0o600); err != nil {
			t.Fatalf("failed to write stale PID file: %v", err)
		}

		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should succeed with stale PID: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("stale PID file should be removed")
		}
	})

	t.Run("checkExisting with invalid PID file", func(t *testing.T) {
		if err := os.WriteFile(testPidManager.path, []byte("invalid"), 0o600); err != nil {
			t.Fatalf("failed to write invalid PID file: %v", err)
		}

		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should succeed with invalid PID: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("invalid PID file should be removed")
		}
	})
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(99999999) {
		t.Error("non-existent process should not be alive")
	}
}

// serve answers each connection with reply(line)
func serve(t *testing.T, sm *socketManager, reply func(string) string) {
	t.Helper()

	listener, err := sm.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				fmt.Fprintf(c, "%s\n", reply(line))
			}(conn)
		}
	}()
}

func TestSocketManagerSend(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}

	var mu sync.Mutex
	var got []string
	serve(t, sm, func(line string) string {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
		cmd, err := ParseCommand(line)
		if err != nil {
			return ErrReply("bad_command", err)
		}
		switch cmd.Name {
		case CmdVersion:
			return StatusReply(Field{"proto", ProtoVer})
		case CmdSubmit:
			return OKReply("submitted " + cmd.Args[1])
		default:
			return OKReply(cmd.Name)
		}
	})

	tests := []struct {
		cmd      Command
		expected string
	}{
		{Simple(CmdVersion), "STATUS proto=1.0\n"},
		{SubmitURL("https://example.com/a.mp3"), "OK submitted https://example.com/a.mp3\n"},
		{SubmitFile("/tmp/my clip.wav"), "OK submitted /tmp/my clip.wav\n"},
		{Simple(CmdToggle), "OK toggle\n"},
		{Simple("bogus"), "ERR bad_command: unknown command: \"bogus\"\n"},
	}

	for _, tt := range tests {
		resp, err := sm.send(tt.cmd)
		if err != nil {
			t.Errorf("send %q failed: %v", tt.cmd, err)
			continue
		}
		if resp != tt.expected {
			t.Errorf("send %q: got %q, expected %q", tt.cmd, resp, tt.expected)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(tests) || got[2] != "submit file /tmp/my clip.wav\n" {
		t.Errorf("server saw %q", got)
	}
}

func TestSocketManagerDialWithoutListener(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if _, err := sm.dial(); err == nil {
		t.Error("dial should fail when no listener exists")
	}
}

func TestPathFunctions(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sock, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if !filepath.IsAbs(sock) || filepath.Base(sock) != SockName {
		t.Errorf("unexpected socket path %s", sock)
	}
	if filepath.Base(filepath.Dir(sock)) != "getsubs" {
		t.Errorf("socket should live in the getsubs cache dir, got %s", sock)
	}

	pid, err := getPidPath()
	if err != nil {
		t.Fatalf("getPidPath failed: %v", err)
	}
	if filepath.Base(pid) != PidName {
		t.Errorf("unexpected pid path %s", pid)
	}
}

func TestPublicAPIWithTempDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon should succeed when no daemon running: %v", err)
	}

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should fail while our own pid file exists")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		bufio.NewReader(c).ReadString('\n')
		fmt.Fprint(c, "ERR busy: a request is already in flight\n")
	}()

	reply, err := Call(Simple(CmdStatus))
	var remote *RemoteError
	if !asRemote(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Code != "busy" || reply.Kind != KindErr {
		t.Errorf("unexpected reply %+v / %+v", reply, remote)
	}
}
