package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/config"
)

// StartStatus is the distinguishing status a start/stop request reports.
// Repeated requests succeed; the status tells the caller what actually
// happened.
type StartStatus string

const (
	StatusStarted        StartStatus = "started"
	StatusAlreadyRunning StartStatus = "already-running"
	StatusStopping       StartStatus = "stopping"
	StatusNotRunning     StartStatus = "not-running"
)

// Process is a single managed process: stopped -> running -> stopped.
// Safe for concurrent use; the control-plane HTTP handlers call into it from
// gin's handler goroutines.
type Process struct {
	name   string
	argv   []string
	launch Launcher

	mu       sync.Mutex
	handle   Handle
	running  bool
	stopping bool
}

func NewProcess(name string, argv []string, launch Launcher) *Process {
	return &Process{name: name, argv: argv, launch: launch}
}

// Start spawns the process unless it is already running, in which case it
// succeeds without a new spawn and reports "already-running".
func (p *Process) Start() (StartStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		log.Info().Str("module", "supervisor").Str("proc", p.name).Msg("start requested, already running")
		return StatusAlreadyRunning, nil
	}
	if len(p.argv) == 0 {
		return "", ErrEmptyCommand
	}

	h := p.launch(p.argv)
	if err := h.Start(); err != nil {
		log.Error().Err(err).Str("module", "supervisor").Str("proc", p.name).Msg("spawn failed")
		return "", err
	}
	p.handle = h
	p.running = true
	p.stopping = false
	log.Info().Str("module", "supervisor").Str("proc", p.name).Strs("argv", p.argv).Msg("process started")

	go p.watch(h)
	return StatusStarted, nil
}

// Stop requests graceful termination and transitions to stopped
// optimistically; it does not wait for the actual exit. Stopping a process
// that is not running succeeds with "not-running".
func (p *Process) Stop() StartStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return StatusNotRunning
	}
	p.stopping = true
	p.running = false
	if err := p.handle.Interrupt(); err != nil {
		log.Error().Err(err).Str("module", "supervisor").Str("proc", p.name).Msg("interrupt failed")
	}
	log.Info().Str("module", "supervisor").Str("proc", p.name).Msg("stop requested")
	return StatusStopping
}

func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// watch consumes the handle's exit notification. An exit nobody asked for is
// logged and resets state so a later Start can retry.
func (p *Process) watch(h Handle) {
	st := <-h.Done()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle != h {
		// A newer spawn replaced this handle; nothing to reset.
		return
	}
	p.handle = nil
	if p.stopping {
		p.stopping = false
		log.Info().Str("module", "supervisor").Str("proc", p.name).Int("code", st.Code).Msg("process exited after stop")
		return
	}
	p.running = false
	log.Warn().Str("module", "supervisor").Str("proc", p.name).Int("code", st.Code).Err(st.Err).
		Msg("process exited unexpectedly")
}

// Supervisor owns the two managed processes of the system.
type Supervisor struct {
	Signaling *Process
	Streamer  *Process

	startupDelay time.Duration
}

func New(cfg config.Supervisor) *Supervisor {
	return &Supervisor{
		Signaling:    NewProcess("signaling", cfg.SignalingCmd, NewCommand),
		Streamer:     NewProcess("streamer", cfg.StreamerCmd, NewCommand),
		startupDelay: cfg.StartupDelay,
	}
}

// Boot unconditionally starts the signaling relay, then waits the configured
// ordering delay so the relay can bind its endpoint before the control plane
// does. Best-effort ordering only; the race is accepted, not detected.
func (s *Supervisor) Boot(ctx context.Context) error {
	if _, err := s.Signaling.Start(); err != nil {
		return err
	}
	select {
	case <-time.After(s.startupDelay):
	case <-ctx.Done():
	}
	return nil
}

// Shutdown stops the media producer and the signaling relay, in that order.
// It does not wait for either child to confirm termination.
func (s *Supervisor) Shutdown() {
	if st := s.Streamer.Stop(); st == StatusStopping {
		log.Info().Str("module", "supervisor").Msg("streamer stopping")
	}
	if st := s.Signaling.Stop(); st == StatusStopping {
		log.Info().Str("module", "supervisor").Msg("signaling stopping")
	}
}
