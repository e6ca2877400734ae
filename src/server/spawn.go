package server

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PackagesEnvVar points the child at the bundled argos models.
const PackagesEnvVar = "ARGOS_PACKAGES_DIR"

// terminateGrace is how long Close waits after the terminate signal
// before killing the process outright.
const terminateGrace = 5 * time.Second

var ErrSpawnFailed = errors.New("failed to start libretranslate")

// LaunchSpec is everything needed to start the service process.
type LaunchSpec struct {
	Path string
	Args []string
	// Env is appended to the parent environment.
	Env []string
	// StderrPath receives the child's stderr; empty discards it.
	StderrPath string
}

// Plan builds the command line for exe on port. With models present the
// service only loads languages (the installer manifest wins over
// loadLanguages); otherwise it downloads them on first launch.
func (l Locator) Plan(exe string, port int, loadLanguages string) LaunchSpec {
	spec := LaunchSpec{Path: exe}
	if IsPython(exe) {
		if script := entryScript(exe); script != "" {
			spec.Args = append(spec.Args, script)
		} else {
			spec.Args = append(spec.Args, "-m", "libretranslate")
		}
	}
	spec.Args = append(spec.Args, "--host", loopbackHost, "--port", strconv.Itoa(port))

	if dir := l.BundledPackages(exe); dir != "" {
		spec.Env = append(spec.Env, PackagesEnvVar+"="+dir)
	}
	if l.HasLanguagePackages(exe) {
		langs := l.InstalledLanguages(exe)
		if langs == "" {
			langs = loadLanguages
		}
		spec.Args = append(spec.Args, "--load-only", langs)
	} else {
		spec.Args = append(spec.Args, "--update-models")
	}
	return spec
}

// ProcessView is the restricted, non-blocking access lent to the monitor.
type ProcessView interface {
	// Exited reports whether the process has ended and how.
	Exited() (bool, error)
	PID() int
}

// Handle owns one running service process. Only the owner may Close it.
type Handle struct {
	cmd    *exec.Cmd
	port   int
	stderr *os.File
	logger *zap.SugaredLogger

	done chan struct{}

	mu      sync.Mutex
	exited  bool
	waitErr error

	closeOnce sync.Once
}

// Spawn starts the process detached from the controlling terminal, stdin and
// stdout on the null device.
func Spawn(spec LaunchSpec, port int, logger *zap.SugaredLogger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	detach(cmd)

	var stderr *os.File
	if spec.StderrPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.StderrPath), 0o755); err != nil {
			logger.Warnw("Cannot create service log directory, discarding stderr", "path", spec.StderrPath, "error", err)
		} else if f, err := os.Create(spec.StderrPath); err != nil {
			logger.Warnw("Cannot create service log, discarding stderr", "path", spec.StderrPath, "error", err)
		} else {
			stderr = f
			cmd.Stderr = f
			logger.Infow("LibreTranslate stderr redirected", "path", spec.StderrPath)
		}
	}

	if err := cmd.Start(); err != nil {
		if stderr != nil {
			_ = stderr.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	h := &Handle{
		cmd:    cmd,
		port:   port,
		stderr: stderr,
		logger: logger,
		done:   make(chan struct{}),
	}
	go h.wait()
	logger.Infow("LibreTranslate started", "pid", cmd.Process.Pid, "port", port)
	return h, nil
}

func (h *Handle) wait() {
	err := h.cmd.Wait()
	h.mu.Lock()
	h.exited = true
	h.waitErr = err
	h.mu.Unlock()
	if h.stderr != nil {
		_ = h.stderr.Close()
	}
	close(h.done)
}

func (h *Handle) Port() int { return h.port }

func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Exited never blocks.
func (h *Handle) Exited() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited, h.waitErr
}

// Done is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close stops the process if it is still running and waits for it. Safe to
// call more than once and after the process already exited.
func (h *Handle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		pid := h.PID()
		if exited, waitErr := h.Exited(); exited {
			h.logger.Infow("LibreTranslate already exited", "pid", pid, "status", exitStatus(waitErr))
			return
		}
		h.logger.Infow("Stopping LibreTranslate", "pid", pid)
		if termErr := terminate(h.cmd.Process); termErr != nil {
			h.logger.Debugw("Terminate signal failed", "pid", pid, "error", termErr)
		}
		select {
		case <-h.done:
		case <-time.After(terminateGrace):
			h.logger.Warnw("LibreTranslate ignored terminate, killing", "pid", pid)
			if killErr := h.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = killErr
			}
			<-h.done
		}
	})
	return err
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
