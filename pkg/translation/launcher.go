package translation

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/zotbridge/pkg/logging"
)

var debugLog = logging.Component("translation")

const (
	DefaultCheckTimeout = time.Second
	DefaultStartTimeout = 15 * time.Second
	pollInterval        = 300 * time.Millisecond
	stopGrace           = 5 * time.Second
)

// LaunchOptions describes how to start a translation server that is not
// already listening.
type LaunchOptions struct {
	// Command is split on whitespace; the first field is the executable.
	Command string
	// Dir is the working directory of the process.
	Dir string
	// CheckTimeout bounds the check for an already running server.
	CheckTimeout time.Duration
	// StartTimeout bounds the wait for a spawned server's port.
	StartTimeout time.Duration
	// Stderr receives the process's stderr. Stdout is always discarded.
	Stderr io.Writer
}

// Process is a translation server started by EnsureServer.
type Process struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// EnsureServer makes sure a translation server answers at baseURL. If one
// is already listening it returns a nil Process; otherwise it spawns
// opts.Command and waits for the port to open.
func EnsureServer(ctx context.Context, baseURL string, opts LaunchOptions) (*Process, error) {
	addr, err := hostPort(baseURL)
	if err != nil {
		return nil, err
	}
	check := opts.CheckTimeout
	if check <= 0 {
		check = DefaultCheckTimeout
	}
	if err := waitForPort(ctx, addr, check); err == nil {
		debugLog.Infof("translation server already listening on %s", addr)
		return nil, nil
	}

	fields := strings.Fields(opts.Command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("translation server is not listening on %s and no command was given", addr)
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout = io.Discard
	cmd.Stderr = opts.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start translation server %q: %w", fields[0], err)
	}
	p := &Process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	debugLog.Infof("started translation server (pid %d): %s", cmd.Process.Pid, opts.Command)

	start := opts.StartTimeout
	if start <= 0 {
		start = DefaultStartTimeout
	}
	if err := waitForPort(ctx, addr, start); err != nil {
		_ = p.Stop()
		return nil, fmt.Errorf("translation server did not start: %w", err)
	}
	return p, nil
}

// Stop terminates the process, killing it if it ignores SIGTERM. Stop on a
// nil Process is a no-op.
func (p *Process) Stop() error {
	if p == nil || p.cmd.Process == nil {
		return nil
	}
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		debugLog.Warnf("failed to signal translation server: %v", err)
	}
	select {
	case <-p.exited:
		return nil
	case <-time.After(stopGrace):
		debugLog.Warnf("translation server ignored SIGTERM, killing")
		if err := p.cmd.Process.Kill(); err != nil {
			return err
		}
		<-p.exited
		return nil
	}
}

func hostPort(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid translation server url %q", baseURL)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func waitForPort(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var dialer net.Dialer
	for {
		dialCtx, cancel := context.WithTimeout(ctx, pollInterval)
		conn, err := dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s not reachable after %s: %w", addr, timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
