//go:build !windows

package ports

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// lookupTimeout bounds one lsof invocation.
const lookupTimeout = 10 * time.Second

// unixBackend discovers listeners with lsof and kills them with SIGKILL,
// matching the behavior of the platform's original port-fix tooling.
type unixBackend struct{}

func newPlatformBackend() Backend {
	return unixBackend{}
}

func (unixBackend) ListListeners(ctx context.Context, port int) ([]Listener, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	// -t prints bare PIDs, one per line. lsof exits 1 when nothing
	// matches, which is the port-is-free case, not an error.
	cmd := exec.CommandContext(ctx, "lsof", "-t", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("lsof port %d: %w", port, err)
	}

	var listeners []Listener
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		listeners = append(listeners, Listener{PID: pid, Command: processName(pid)})
	}
	return listeners, nil
}

func (unixBackend) Terminate(_ context.Context, pid int) error {
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		// Process exited between lookup and kill: already reclaimed.
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

// processName is best effort; /proc exists on Linux only.
func processName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
