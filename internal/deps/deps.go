package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external tool
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
}

// Check looks up name on PATH and, when found, reads its version from the
// first line printed by `name versionArgs...`.
func Check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Name: name}
	}

	status := Status{
		Name:      name,
		Installed: true,
		Path:      path,
	}
	if len(versionArgs) == 0 {
		return status
	}

	output, err := exec.Command(path, versionArgs...).Output()
	if err == nil {
		first, _, _ := strings.Cut(string(output), "\n")
		status.Version = strings.TrimSpace(first)
	}

	return status
}

// CheckNotifySend checks for notify-send, which desktop notifications need
func CheckNotifySend() Status {
	return Check("notify-send", "--version")
}

// ForNotifications returns the tools a notifications type depends on
func ForNotifications(kind string) []Status {
	if kind != "desktop" {
		return nil
	}
	return []Status{CheckNotifySend()}
}
