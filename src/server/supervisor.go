// Package server supervises the optional local LibreTranslate process:
// discovery, port negotiation, spawn, readiness monitoring and teardown.
package server

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"screen-translate/src/status"
)

var ErrAlreadyStarted = errors.New("supervisor already started")

type Options struct {
	PythonPath    string
	PreferredPort int
	LoadLanguages string
	// LogPath receives the service's stderr.
	LogPath string
	Monitor MonitorOptions
	// Locator overrides DefaultLocator(PythonPath).
	Locator *Locator
	// PortInUse overrides the TCP connect probe used for negotiation.
	PortInUse func(int) bool
}

// Supervisor exclusively owns at most one service process for its lifetime.
type Supervisor struct {
	opts   Options
	bus    *status.Bus
	logger *zap.SugaredLogger

	mu       sync.Mutex
	started  bool
	handle   *Handle
	port     int
	cancel   context.CancelFunc
	monitorW sync.WaitGroup
	monErr   error
}

func New(opts Options, bus *status.Bus, logger *zap.SugaredLogger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if bus == nil {
		bus = status.NewBus(status.Starting)
	}
	return &Supervisor{opts: opts, bus: bus, logger: logger}
}

// Start brings the service up in the background and returns the port it
// will listen on. Failures resolve the bus to Failed and are not retried.
// A service already answering on the preferred port is adopted as Ready.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return s.port, ErrAlreadyStarted
	}
	s.started = true

	probe := s.opts.Monitor.withDefaults().Probe
	if probe(ctx, s.opts.PreferredPort) {
		s.logger.Infow("LibreTranslate already running, skipping spawn", "port", s.opts.PreferredPort)
		s.port = s.opts.PreferredPort
		s.bus.Resolve(status.Ready)
		return s.port, nil
	}

	port, err := s.launch()
	if err != nil {
		s.bus.Resolve(status.Failed)
		s.logger.Errorw("LibreTranslate failed to start", "error", err)
		return 0, err
	}
	s.port = port

	monCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	mon := NewMonitor(s.handle, port, s.bus, s.opts.Monitor, s.logger)
	s.monitorW.Add(1)
	go func() {
		defer s.monitorW.Done()
		err := mon.Run(monCtx)
		s.mu.Lock()
		s.monErr = err
		s.mu.Unlock()
	}()
	s.logger.Infow("Started in background, waiting for readiness", "port", port)
	return port, nil
}

func (s *Supervisor) launch() (int, error) {
	locator := DefaultLocator(s.opts.PythonPath)
	if s.opts.Locator != nil {
		locator = *s.opts.Locator
	}
	if s.opts.PythonPath != "" && !exists(s.opts.PythonPath) {
		s.logger.Warnw("Configured python path not found", "path", s.opts.PythonPath)
	}

	exe, err := locator.Find()
	if err != nil {
		return 0, err
	}

	port, err := NegotiatePort(s.opts.PreferredPort, s.opts.PortInUse)
	if err != nil {
		return 0, err
	}
	if port != s.opts.PreferredPort {
		s.logger.Infow("Preferred port occupied, using another", "preferred", s.opts.PreferredPort, "port", port)
	}

	spec := locator.Plan(exe, port, s.opts.LoadLanguages)
	spec.StderrPath = s.opts.LogPath
	s.logger.Infow("Starting LibreTranslate", "exe", exe, "args", spec.Args)

	h, err := Spawn(spec, port, s.logger)
	if err != nil {
		return 0, err
	}
	s.handle = h
	return port, nil
}

// Port is the port chosen by Start, or 0.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// MonitorErr reports why monitoring ended in failure, once it has.
func (s *Supervisor) MonitorErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monErr
}

// Close stops monitoring and tears the process down. Idempotent.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	cancel, h := s.cancel, s.handle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.monitorW.Wait()
	if h == nil {
		return nil
	}
	return h.Close()
}
