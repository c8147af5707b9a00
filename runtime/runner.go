package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// streamFD is the file descriptor the listener writes frames to in the
// child process. ExtraFiles[0] lands on fd 3.
const streamFD = 3

// RunnerConfig configures the PHP test runner process.
type RunnerConfig struct {
	// PHPBinary is the php interpreter (default "php").
	PHPBinary string
	// PHPUnitPath is the phpunit entry script
	// (default "vendor/bin/phpunit").
	PHPUnitPath string
	// BootstrapPath is the extracted listener bundle, loaded into the
	// PHP process via auto_prepend_file.
	BootstrapPath string
	// Args are extra phpunit arguments appended after the entry script.
	Args []string
	// WorkDir is the working directory for the runner process.
	WorkDir string
	// RunID is exported to the listener for frame correlation.
	RunID string
	// Env is extra environment (KEY=VALUE) appended to the inherited
	// environment. Later entries win on duplicate keys.
	Env []string
}

// RunnerResult contains the runner process outcome.
type RunnerResult struct {
	// ExitCode is the process exit code.
	ExitCode int
	// StdoutBytes is PHPUnit's console output, for diagnostics.
	StdoutBytes []byte
	// StderrBytes is captured stderr output, for diagnostics.
	StderrBytes []byte
}

// Runner abstracts the runner process for orchestration and tests.
type Runner interface {
	// Start launches the runner process.
	Start(ctx context.Context) error

	// Frames returns the reader carrying the bootstrap frame stream.
	Frames() io.Reader

	// Wait blocks until the process exits and returns the result.
	Wait() (*RunnerResult, error)

	// Kill terminates the runner process.
	Kill() error
}

// RunnerFactory creates a Runner from config. Tests inject fakes here.
type RunnerFactory func(config *RunnerConfig) Runner

// RunnerManager launches and supervises the PHP runner process.
//
// The listener bundle writes its frame stream to a dedicated pipe on
// fd 3, leaving stdout and stderr untouched for PHPUnit's own output.
type RunnerManager struct {
	config     *RunnerConfig
	cmd        *exec.Cmd
	frameRead  *os.File
	frameWrite *os.File
	stdoutDone chan []byte
	stderrDone chan []byte
}

// NewRunnerManager creates a runner manager for the given config.
func NewRunnerManager(config *RunnerConfig) *RunnerManager {
	return &RunnerManager{config: config}
}

// NewRunner is the default RunnerFactory.
func NewRunner(config *RunnerConfig) Runner {
	return NewRunnerManager(config)
}

// Start launches php with the listener bundle prepended.
func (m *RunnerManager) Start(ctx context.Context) error {
	phpBinary := m.config.PHPBinary
	if phpBinary == "" {
		phpBinary = "php"
	}
	phpunitPath := m.config.PHPUnitPath
	if phpunitPath == "" {
		phpunitPath = "vendor/bin/phpunit"
	}

	frameRead, frameWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create frame pipe: %w", err)
	}
	m.frameRead = frameRead
	m.frameWrite = frameWrite

	args := []string{
		"-d", "auto_prepend_file=" + m.config.BootstrapPath,
		phpunitPath,
	}
	args = append(args, m.config.Args...)

	m.cmd = exec.CommandContext(ctx, phpBinary, args...)
	m.cmd.Dir = m.config.WorkDir
	m.cmd.ExtraFiles = []*os.File{frameWrite}

	env := os.Environ()
	env = append(env,
		"ALLURE_PHPUNIT_RUN_ID="+m.config.RunID,
		fmt.Sprintf("ALLURE_PHPUNIT_STREAM_FD=%d", streamFD),
	)
	env = append(env, m.config.Env...)
	m.cmd.Env = deduplicateEnv(env)

	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		m.closeFramePipe()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		m.closeFramePipe()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := m.cmd.Start(); err != nil {
		m.closeFramePipe()
		return fmt.Errorf("failed to start runner process: %w", err)
	}

	// The child holds its own copy of the write end. Closing ours makes
	// the frame reader see EOF when the child exits.
	_ = m.frameWrite.Close()
	m.frameWrite = nil

	// Drain stdout and stderr concurrently so a chatty runner cannot
	// block on a full pipe while the frame stream is still being read.
	m.stdoutDone = make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(stdout)
		m.stdoutDone <- b
	}()
	m.stderrDone = make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(stderr)
		m.stderrDone <- b
	}()

	return nil
}

func (m *RunnerManager) closeFramePipe() {
	if m.frameRead != nil {
		_ = m.frameRead.Close()
		m.frameRead = nil
	}
	if m.frameWrite != nil {
		_ = m.frameWrite.Close()
		m.frameWrite = nil
	}
}

// Frames returns the frame stream reader. Valid after Start.
func (m *RunnerManager) Frames() io.Reader {
	return m.frameRead
}

// Wait blocks until the runner process exits.
// Returns the exit code and captured output. A nonzero exit code is a
// result, not an error; errors indicate the process could not be waited
// on at all.
func (m *RunnerManager) Wait() (*RunnerResult, error) {
	stdoutBytes := <-m.stdoutDone
	stderrBytes := <-m.stderrDone

	waitErr := m.cmd.Wait()

	// Ingestion has finished with the frame stream by the time the
	// orchestrator calls Wait.
	if m.frameRead != nil {
		_ = m.frameRead.Close()
		m.frameRead = nil
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("failed to wait for runner process: %w", waitErr)
		}
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			exitCode = status.ExitStatus()
		} else {
			exitCode = -1
		}
	}

	return &RunnerResult{
		ExitCode:    exitCode,
		StdoutBytes: stdoutBytes,
		StderrBytes: stderrBytes,
	}, nil
}

// Kill terminates the runner process.
func (m *RunnerManager) Kill() error {
	if m.cmd == nil || m.cmd.Process == nil {
		return nil
	}
	return m.cmd.Process.Kill()
}

// deduplicateEnv removes duplicate environment keys, keeping the last
// occurrence of each.
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}

// StreamRunner adapts a pre-produced frame stream to the Runner
// interface. Harnesses that spawn PHP themselves pipe the listener's
// frame stream in, and the orchestrator ingests it as if a supervised
// process had produced it.
type StreamRunner struct {
	frames io.Reader
}

// NewStreamRunner returns a Runner that reads frames from r.
func NewStreamRunner(r io.Reader) *StreamRunner {
	return &StreamRunner{frames: r}
}

// Start is a no-op: the stream producer is not under supervision.
func (s *StreamRunner) Start(ctx context.Context) error { return nil }

// Frames returns the wrapped stream.
func (s *StreamRunner) Frames() io.Reader { return s.frames }

// Wait reports a zero exit code. The run outcome comes entirely from
// the stream contents: the goodbye summary when present, a crash when
// the stream ends without one.
func (s *StreamRunner) Wait() (*RunnerResult, error) {
	return &RunnerResult{ExitCode: 0}, nil
}

// Kill closes the stream when it is closable, failing any in-flight
// read.
func (s *StreamRunner) Kill() error {
	if c, ok := s.frames.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
