package ffmpeg

import (
	"fmt"
	"strings"
)

// LaunchError indicates the ffmpeg process could not be started at all
// (missing binary, permission problem, fork failure).
type LaunchError struct {
	Binary string
	Err    error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Binary, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExitError indicates the ffmpeg process started but exited unsuccessfully.
// Stderr holds the tail of the process's stderr output for diagnostics.
type ExitError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if e.Stderr != "" {
		// Last stderr line usually carries the actual failure reason
		lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
		msg += ": " + lines[len(lines)-1]
	}
	return msg
}
