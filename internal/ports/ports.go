// Package ports frees a fixed set of TCP ports by finding and terminating
// the processes listening on them. Discovery and termination go through a
// small platform capability interface with unix and windows backends, so no
// call site branches on the platform string.
//
// Reclamation is best effort: a new process can grab a port between the kill
// and the next test run. That race is accepted; the reclaimer only promises
// that ports held at the moment of the call get their holders terminated.
package ports

import (
	"context"

	"go.uber.org/zap"
)

// Listener describes a process bound to a port.
type Listener struct {
	PID     int
	Command string
}

// Backend is the platform capability interface for port reclamation.
type Backend interface {
	// ListListeners returns the processes listening on a TCP port. An
	// empty slice means the port is free.
	ListListeners(ctx context.Context, port int) ([]Listener, error)

	// Terminate forcibly kills a process.
	Terminate(ctx context.Context, pid int) error
}

// Reclaimer frees ports through a Backend.
type Reclaimer struct {
	backend Backend
	logger  *zap.Logger
}

// NewReclaimer builds a reclaimer on the host platform's backend.
func NewReclaimer(logger *zap.Logger) *Reclaimer {
	return NewReclaimerWithBackend(newPlatformBackend(), logger)
}

// NewReclaimerWithBackend builds a reclaimer on an explicit backend. Tests
// inject fakes here.
func NewReclaimerWithBackend(b Backend, logger *zap.Logger) *Reclaimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reclaimer{backend: b, logger: logger}
}

// Reclaim frees every port in the list. A port that is already free is a
// no-op success, never an error, so Reclaim is idempotent and safe to run
// unconditionally as a cheap first remediation. Ports are independent; a
// failure on one does not stop the others, and only the last error is
// returned.
func (r *Reclaimer) Reclaim(ctx context.Context, ports []int) error {
	var lastErr error
	for _, port := range ports {
		if err := r.reclaimOne(ctx, port); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (r *Reclaimer) reclaimOne(ctx context.Context, port int) error {
	listeners, err := r.backend.ListListeners(ctx, port)
	if err != nil {
		r.logger.Warn("port lookup failed", zap.Int("port", port), zap.Error(err))
		return err
	}
	if len(listeners) == 0 {
		r.logger.Debug("port already free", zap.Int("port", port))
		return nil
	}

	var lastErr error
	for _, l := range listeners {
		if err := r.backend.Terminate(ctx, l.PID); err != nil {
			r.logger.Warn("failed to terminate listener",
				zap.Int("port", port), zap.Int("pid", l.PID), zap.Error(err))
			lastErr = err
			continue
		}
		r.logger.Info("terminated listener",
			zap.Int("port", port), zap.Int("pid", l.PID), zap.String("command", l.Command))
	}
	return lastErr
}
