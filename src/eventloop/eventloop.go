// Package eventloop is the control loop that ties input, capture,
// translation and presentation together.
package eventloop

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"screen-translate/src/capture"
	"screen-translate/src/debounce"
	"screen-translate/src/logutil"
	"screen-translate/src/messages"
	"screen-translate/src/mousehook"
	"screen-translate/src/popup"
	"screen-translate/src/status"
	"screen-translate/src/translator"
	"screen-translate/src/tray"
	"screen-translate/src/worker"
)

// DefaultTick is how often the loop polls the event source and the debouncer.
const DefaultTick = 10 * time.Millisecond

type Options struct {
	Source     mousehook.Source
	Grabber    capture.Grabber
	Translator worker.Translator
	Status     *status.Bus
	Presenter  popup.Presenter
	// Actions may be nil when there is no tray.
	Actions  <-chan tray.Action
	Language *translator.TargetLanguage

	PollInterval  time.Duration
	DoubleClick   time.Duration
	MaxTextLength int
	// PopupFloor is the shortest time a result stays on screen.
	PopupFloor time.Duration
	Monitoring bool
	Tick       time.Duration

	// OnStatus is called from the loop whenever the service status changes.
	OnStatus func(status.Status)
	// OnMonitoring is called when the hotkey flips monitoring, so the tray
	// checkbox can follow.
	OnMonitoring func(bool)
}

// Loop owns the debouncer and the monitoring flag. Everything else it
// touches is an actor reached through a channel.
type Loop struct {
	opts      Options
	debouncer *debounce.Debouncer
	stage     *capture.Stage
	worker    *worker.Worker
	requests  chan messages.Request
	results   chan messages.Result
	logger    *zap.SugaredLogger

	monitoring bool
	lastStatus status.Status
	now        func() time.Time
}

func New(opts Options, logger *zap.SugaredLogger) *Loop {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Presenter == nil {
		opts.Presenter = popup.LogPresenter{Logger: logger}
	}
	if opts.Status == nil {
		opts.Status = status.NewBus(status.Ready)
	}
	if opts.Language == nil {
		opts.Language = translator.NewTargetLanguage("en")
	}
	requests := make(chan messages.Request, 1)
	results := make(chan messages.Result, 1)
	return &Loop{
		opts:       opts,
		debouncer:  debounce.New(opts.PollInterval, opts.DoubleClick),
		stage:      capture.New(opts.Grabber, opts.MaxTextLength, requests, logger.Named("capture")),
		worker:     worker.New(opts.Translator, opts.Status, logger.Named("worker")),
		requests:   requests,
		results:    results,
		logger:     logger,
		monitoring: opts.Monitoring,
		lastStatus: status.Status(-1),
		now:        time.Now,
	}
}

// Run blocks until ctx is done, a Quit event arrives, or the tray asks to
// quit. The capture stage and the worker are stopped before it returns.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.stage.Run(gctx) })
	g.Go(func() error { return l.worker.Run(gctx, l.requests, l.results) })
	g.Go(func() error {
		defer cancel()
		return l.control(gctx)
	})
	err := g.Wait()
	l.opts.Presenter.Dismiss()
	l.logger.Infow("Event loop stopped")
	return err
}

func (l *Loop) control(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.Tick)
	defer ticker.Stop()
	l.logger.Infow("Event loop started",
		"monitoring", l.monitoring,
		"pollInterval", l.debouncer.Interval().String(),
		"target", l.opts.Language.Get())

	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-l.results:
			l.show(res)
		case a, ok := <-l.opts.Actions:
			if !ok {
				l.opts.Actions = nil
				continue
			}
			if l.apply(a) {
				return nil
			}
		case <-ticker.C:
			now := l.now()
			if l.drain(now) {
				return nil
			}
			if pos, ok := l.debouncer.Due(now); ok {
				l.logger.Debugw("Selection settled", "position", pos.String())
				l.stage.Offer(pos)
			}
			l.publishStatus()
		}
	}
}

// drain consumes every queued input event and reports whether one was Quit.
func (l *Loop) drain(now time.Time) bool {
	for {
		ev, ok := l.opts.Source.Poll()
		if !ok {
			return false
		}
		switch ev.Kind {
		case messages.EventQuit:
			l.logger.Infow("Quit requested")
			return true
		case messages.EventClick:
			l.opts.Presenter.Dismiss()
		case messages.EventToggleMonitoring:
			l.setMonitoring(!l.monitoring)
			if l.opts.OnMonitoring != nil {
				l.opts.OnMonitoring(l.monitoring)
			}
		case messages.EventSelectionDone:
			if !l.monitoring {
				continue
			}
			l.debouncer.Observe(ev.Position, now)
		}
	}
}

// apply handles one tray action and reports whether the loop should stop.
func (l *Loop) apply(a tray.Action) bool {
	switch a.Kind {
	case tray.ActionQuit:
		return true
	case tray.ActionToggleMonitoring:
		l.setMonitoring(a.Monitoring)
	case tray.ActionChangeLanguage:
		l.opts.Language.Set(a.Language)
		l.logger.Infow("Target language changed", "target", a.Language)
	}
	return false
}

func (l *Loop) setMonitoring(on bool) {
	l.monitoring = on
	if !on {
		l.debouncer.Reset()
	}
	l.logger.Infow("Monitoring toggled", "active", on)
}

func (l *Loop) show(res messages.Result) {
	d := popup.AutoHide(res.Translated, l.opts.PopupFloor)
	l.logger.Debugw("Showing result",
		"translated", logutil.Preview(res.Translated, 40),
		"duration", d.String())
	l.opts.Presenter.Show(popup.Content{
		Original:   res.Original,
		Translated: res.Translated,
		Position:   res.Position,
		Duration:   d,
	})
}

func (l *Loop) publishStatus() {
	st := l.opts.Status.Load()
	if st == l.lastStatus {
		return
	}
	l.lastStatus = st
	if l.opts.OnStatus != nil {
		l.opts.OnStatus(st)
	}
}

// Monitoring reports whether selections are currently translated. It is
// only meaningful once Run has returned.
func (l *Loop) Monitoring() bool { return l.monitoring }
