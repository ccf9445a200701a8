// Package supervisor starts, monitors, and stops the external processes that
// implement signaling and media production. Each managed process is either
// stopped or running; there is no persisted intermediate state.
package supervisor

import (
	"errors"
	"os"
	"os/exec"
)

var ErrEmptyCommand = errors.New("empty command")

// ExitStatus reports how a child process terminated.
type ExitStatus struct {
	Code int
	Err  error
}

// Handle is the interface to a single spawned process. Exit is observed by
// receiving from Done rather than through ambient callbacks.
type Handle interface {
	Start() error
	// Interrupt requests graceful termination. It never force-kills.
	Interrupt() error
	// Done yields exactly one value, after the process has exited.
	Done() <-chan ExitStatus
}

// Launcher builds a Handle for an argv. Production code uses NewCommand;
// tests substitute fakes.
type Launcher func(argv []string) Handle

type execHandle struct {
	cmd  *exec.Cmd
	done chan ExitStatus
}

// NewCommand returns an os/exec-backed Handle. The child inherits stdout and
// stderr so its own logs land next to the supervisor's.
func NewCommand(argv []string) Handle {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return &execHandle{
		cmd:  cmd,
		done: make(chan ExitStatus, 1),
	}
}

func (h *execHandle) Start() error {
	if err := h.cmd.Start(); err != nil {
		return err
	}
	go func() {
		err := h.cmd.Wait()
		h.done <- ExitStatus{Code: h.cmd.ProcessState.ExitCode(), Err: err}
	}()
	return nil
}

func (h *execHandle) Interrupt() error {
	if h.cmd.Process == nil {
		return errors.New("process not started")
	}
	return h.cmd.Process.Signal(os.Interrupt)
}

func (h *execHandle) Done() <-chan ExitStatus {
	return h.done
}
