package ffmpeg

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/madhusudan785/SnapStream/internal/config"
)

// stderrTailLines is how many trailing stderr lines are kept for diagnostics.
const stderrTailLines = 40

// Runner executes ffmpeg invocations. Implementations must be safe for
// concurrent use.
type Runner interface {
	// Run executes ffmpeg with the given arguments and blocks until it
	// finishes. Returns *LaunchError if the process could not start and
	// *ExitError if it exited non-zero.
	Run(ctx context.Context, args []string) error
}

// ExecRunner runs ffmpeg as a subprocess with a per-invocation timeout.
type ExecRunner struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner resolves the ffmpeg binary and returns an ExecRunner.
func NewRunner(cfg config.FFmpegConfig, logger *slog.Logger) (*ExecRunner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	binary, err := ResolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, err
	}

	logger.Info("ffmpeg binary resolved", slog.String("path", binary))

	return &ExecRunner{
		binary:  binary,
		timeout: cfg.ProcessTimeout,
		logger:  logger,
	}, nil
}

// Binary returns the resolved ffmpeg binary path.
func (r *ExecRunner) Binary() string {
	return r.binary
}

// Run executes ffmpeg with discrete arguments; nothing is passed through a
// shell. The process is killed when ctx is cancelled or the configured
// timeout elapses.
func (r *ExecRunner) Run(ctx context.Context, args []string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)

	tail := &stderrTail{}
	cmd.Stderr = tail

	start := time.Now()
	r.logger.Debug("starting ffmpeg",
		slog.String("binary", r.binary),
		slog.String("args", strings.Join(args, " ")),
	)

	if err := cmd.Start(); err != nil {
		return &LaunchError{Binary: r.binary, Err: err}
	}

	err := cmd.Wait()
	elapsed := time.Since(start)

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		// Prefer the context error when we killed the process ourselves
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.Warn("ffmpeg cancelled",
				slog.Duration("elapsed", elapsed),
				slog.String("reason", ctxErr.Error()),
			)
			return ctxErr
		}

		stderr := tail.String()
		r.logger.Error("ffmpeg failed",
			slog.Int("exit_code", exitCode),
			slog.Duration("elapsed", elapsed),
			slog.String("stderr", stderr),
		)
		return &ExitError{Args: args, ExitCode: exitCode, Stderr: stderr}
	}

	r.logger.Debug("ffmpeg finished", slog.Duration("elapsed", elapsed))
	return nil
}

// stderrTail is an io.Writer keeping the last stderrTailLines lines of
// whatever is written to it.
type stderrTail struct {
	mu      sync.Mutex
	lines   []string
	partial strings.Builder
}

// Write implements io.Writer.
func (t *stderrTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range p {
		if b == '\n' {
			t.appendLine(t.partial.String())
			t.partial.Reset()
			continue
		}
		t.partial.WriteByte(b)
	}
	return len(p), nil
}

func (t *stderrTail) appendLine(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLines {
		t.lines = t.lines[1:]
	}
}

// String returns the collected tail, including any unterminated final line.
func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := t.lines
	if t.partial.Len() > 0 {
		lines = append(append([]string{}, lines...), t.partial.String())
	}
	return strings.Join(lines, "\n")
}

// Ensure ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
