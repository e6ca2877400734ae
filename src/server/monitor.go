package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"screen-translate/src/status"
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultReadyTimeout   = 180 * time.Second
	DefaultProbeTimeout   = 500 * time.Millisecond
	defaultProgressPeriod = 30 * time.Second
	maxProbeBody          = 1 << 20
)

var (
	ErrProcessCrashed   = errors.New("libretranslate process exited")
	ErrReadinessTimeout = errors.New("libretranslate did not become ready")
)

// Prober checks whether the service on port answers as LibreTranslate.
type Prober func(ctx context.Context, port int) bool

// IsRunning probes GET /languages on the loopback port. The body must be a
// language list whose entries carry a "code", so an unrelated server on the
// same port is not mistaken for the service.
func IsRunning(ctx context.Context, port int) bool {
	return probeWith(ctx, &http.Client{Timeout: DefaultProbeTimeout}, port)
}

func probeWith(ctx context.Context, client *http.Client, port int) bool {
	url := "http://" + loopbackHost + ":" + strconv.Itoa(port) + "/languages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false
	}
	return looksLikeLanguages(body)
}

func looksLikeLanguages(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	codes := gjson.GetBytes(body, "#.code").Array()
	return len(codes) > 0
}

type MonitorOptions struct {
	Interval     time.Duration
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Probe        Prober
}

func (o MonitorOptions) withDefaults() MonitorOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultReadyTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.Probe == nil {
		client := &http.Client{Timeout: o.ProbeTimeout}
		o.Probe = func(ctx context.Context, port int) bool { return probeWith(ctx, client, port) }
	}
	return o
}

// Monitor watches a freshly spawned process until it is ready, dies, or
// runs out of time, and publishes exactly one terminal status.
type Monitor struct {
	view   ProcessView
	port   int
	bus    *status.Bus
	opts   MonitorOptions
	logger *zap.SugaredLogger
}

func NewMonitor(view ProcessView, port int, bus *status.Bus, opts MonitorOptions, logger *zap.SugaredLogger) *Monitor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Monitor{view: view, port: port, bus: bus, opts: opts.withDefaults(), logger: logger}
}

// Run returns nil once the service is ready or ctx is cancelled. A
// cancelled monitor publishes nothing.
func (m *Monitor) Run(ctx context.Context) error {
	start := time.Now()
	lastLog := time.Duration(0)
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if exited, waitErr := m.view.Exited(); exited {
			m.bus.Resolve(status.Failed)
			m.logger.Errorw("LibreTranslate process exited; check libretranslate.log in the app data folder",
				"pid", m.view.PID(), "status", exitStatus(waitErr))
			return fmt.Errorf("%w (pid %d): %s", ErrProcessCrashed, m.view.PID(), exitStatus(waitErr))
		}

		if m.opts.Probe(ctx, m.port) {
			m.bus.Resolve(status.Ready)
			m.logger.Infow("LibreTranslate is ready", "port", m.port, "after", time.Since(start).Round(time.Second).String())
			return nil
		}

		elapsed := time.Since(start)
		if elapsed-lastLog >= defaultProgressPeriod {
			lastLog = elapsed
			m.logger.Infow("Still waiting for LibreTranslate", "elapsed", elapsed.Round(time.Second).String())
		}
		if elapsed > m.opts.Timeout {
			m.bus.Resolve(status.Failed)
			m.logger.Errorw("LibreTranslate did not become ready in time", "timeout", m.opts.Timeout.String())
			return fmt.Errorf("%w within %s", ErrReadinessTimeout, m.opts.Timeout)
		}
	}
}
