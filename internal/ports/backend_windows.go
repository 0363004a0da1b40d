//go:build windows

package ports

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// lookupTimeout bounds one netstat invocation.
const lookupTimeout = 10 * time.Second

// windowsBackend discovers listeners by parsing netstat output and kills
// them with taskkill /F.
type windowsBackend struct{}

func newPlatformBackend() Backend {
	return windowsBackend{}
}

func (windowsBackend) ListListeners(ctx context.Context, port int) ([]Listener, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "netstat", "-ano", "-p", "TCP")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("netstat: %w", err)
	}

	suffix := fmt.Sprintf(":%d", port)
	seen := map[int]bool{}
	var listeners []Listener
	for _, line := range strings.Split(out.String(), "\n") {
		fields := strings.Fields(line)
		// Proto LocalAddress ForeignAddress State PID
		if len(fields) < 5 || !strings.EqualFold(fields[3], "LISTENING") {
			continue
		}
		if !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil || seen[pid] {
			continue
		}
		seen[pid] = true
		listeners = append(listeners, Listener{PID: pid})
	}
	return listeners, nil
}

func (windowsBackend) Terminate(ctx context.Context, pid int) error {
	cmd := exec.CommandContext(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("taskkill pid %d: %w", pid, err)
	}
	return nil
}
