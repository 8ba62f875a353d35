package ipc

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/itsneelabh/evalsession/core"
)

// Process wraps a spawned evaluator worker child process: its framed
// stdin/stdout channel plus a line reader over its raw stderr, which
// carries process-level diagnostics (panics, startup failures) rather
// than protocol-level {stderr} messages, which travel over stdout.
type Process struct {
	cmd     *exec.Cmd
	Encoder *Encoder
	Decoder *Decoder

	rawStderr *bufio.Scanner
	logger    core.Logger
}

// Spawn starts command with args as the evaluator worker, wiring its
// stdin/stdout to a framed JSON channel and its stderr to a line
// scanner for diagnostic logging.
func Spawn(ctx context.Context, command string, args []string, logger core.Logger) (*Process, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &core.FrameworkError{Op: "ipc.Spawn", Kind: "ipc", Message: "failed to open worker stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &core.FrameworkError{Op: "ipc.Spawn", Kind: "ipc", Message: "failed to open worker stdout", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &core.FrameworkError{Op: "ipc.Spawn", Kind: "ipc", Message: "failed to open worker stderr", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &core.FrameworkError{Op: "ipc.Spawn", Kind: "ipc", Message: "failed to start worker process", Err: err}
	}

	p := &Process{
		cmd:       cmd,
		Encoder:   NewEncoder(stdin),
		Decoder:   NewDecoder(stdout),
		rawStderr: bufio.NewScanner(stderr),
		logger:    logger,
	}
	go p.drainStderr()
	return p, nil
}

// drainStderr logs each line the worker process writes to its real OS
// stderr, independent of the protocol's own {stderr} stream messages.
func (p *Process) drainStderr() {
	for p.rawStderr.Scan() {
		p.logger.Warn("worker stderr", map[string]interface{}{"line": p.rawStderr.Text()})
	}
}

// Wait blocks until the worker process exits and returns its exit
// status.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Signal sends an OS signal to the worker process, for interrupt and
// kill/restart requests alike.
func (p *Process) Signal(sig syscall.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Kill forcibly terminates the worker process.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// ProcessState returns the worker's exit state once it has exited, or
// nil if it is still running.
func (p *Process) ProcessState() *os.ProcessState {
	return p.cmd.ProcessState
}
