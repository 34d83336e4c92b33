// Package platform holds the OS-specific pieces: user idle detection, the
// single-instance guard and login autostart.
package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"blinkbreak/internal/core/orchestrator"
)

// ErrIdleUnsupported indicates idle detection is not available here.
var ErrIdleUnsupported = orchestrator.ErrIdleUnsupported

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns the provider for the running system.
func NewIdleProvider() IdleProvider {
	return newIdleProvider(execOutput)
}

// commandOutput runs a command and returns its standard output.
type commandOutput func(name string, args ...string) ([]byte, error)

// idleProbeTimeout bounds a single idle query command.
const idleProbeTimeout = 2 * time.Second

func execOutput(name string, args ...string) ([]byte, error) {
	return outputWithTimeout(idleProbeTimeout, name, args...)
}

func outputWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s timed out after %s: %w", name, timeout, ctx.Err())
	}
	return output, err
}

type unsupportedIdleProvider struct {
	reason string
}

func (provider unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, fmt.Errorf("%w: %s", ErrIdleUnsupported, provider.reason)
}

// parseIdleMillis parses xprintidle output: idle milliseconds on one line.
func parseIdleMillis(output []byte) (time.Duration, error) {
	value := strings.TrimSpace(string(output))
	idleMillis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if idleMillis < 0 {
		idleMillis = 0
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from ioreg output.
func parseHIDIdleTime(output []byte) (time.Duration, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		_, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		return time.Duration(nanos), nil
	}
	return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
}
