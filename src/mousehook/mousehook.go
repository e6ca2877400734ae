// Package mousehook turns the global gohook stream into selection events.
package mousehook

import (
	"sync"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"

	"screen-translate/src/hotkey"
	"screen-translate/src/messages"
)

const (
	leftButton = 1
	bufferSize = 64
)

// Source is polled by the control loop for discrete input events.
type Source interface {
	// Poll returns the next event without blocking.
	Poll() (messages.Event, bool)
	Close()
}

// Tracker pairs a left-button press with its release. Any press is also
// reported as a click. When Toggle is set, completing it reports
// EventToggleMonitoring.
type Tracker struct {
	Toggle *hotkey.Combo

	down  bool
	downX int
	downY int
}

// Translate maps one raw hook event to zero or one selection events.
func (t *Tracker) Translate(ev hook.Event) (messages.Event, bool) {
	switch ev.Kind {
	case hook.MouseHold:
		if ev.Button == leftButton {
			t.down = true
			t.downX, t.downY = int(ev.X), int(ev.Y)
		}
		return messages.Event{Kind: messages.EventClick}, true
	case hook.MouseDown:
		if ev.Button != leftButton || !t.down {
			return messages.Event{}, false
		}
		t.down = false
		return messages.SelectionDone(t.downX, t.downY, int(ev.X), int(ev.Y)), true
	case hook.KeyDown, hook.KeyHold, hook.KeyUp:
		if t.Toggle != nil && t.Toggle.Observe(ev) {
			return messages.Event{Kind: messages.EventToggleMonitoring}, true
		}
	}
	return messages.Event{}, false
}

// HookSource reads the process-wide gohook stream. Only one may run at a time.
type HookSource struct {
	events chan messages.Event
	toggle *hotkey.Combo
	logger *zap.SugaredLogger

	closeOnce sync.Once
	done      chan struct{}
}

// Start registers the global hook and begins translating events. toggle
// may be nil.
func Start(toggle *hotkey.Combo, logger *zap.SugaredLogger) *HookSource {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &HookSource{
		events: make(chan messages.Event, bufferSize),
		toggle: toggle,
		logger: logger,
		done:   make(chan struct{}),
	}
	raw := hook.Start()
	go s.run(raw)
	if toggle != nil {
		logger.Infow("Mouse hook started", "toggleHotkey", toggle.String())
	} else {
		logger.Infow("Mouse hook started")
	}
	return s
}

func (s *HookSource) run(raw chan hook.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("Panic in mouse hook goroutine", "panic", r)
		}
	}()
	tracker := Tracker{Toggle: s.toggle}
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-raw:
			if !ok {
				s.logger.Warnw("Mouse hook channel closed")
				return
			}
			out, ok := tracker.Translate(ev)
			if !ok {
				continue
			}
			if out.Kind == messages.EventSelectionDone {
				s.logger.Debugw("Selection gesture", "position", out.Position.String())
			}
			s.push(out)
		}
	}
}

// push drops the event when the consumer has fallen far behind.
func (s *HookSource) push(ev messages.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warnw("Event buffer full, dropping", "kind", ev.Kind.String())
	}
}

func (s *HookSource) Poll() (messages.Event, bool) {
	select {
	case ev := <-s.events:
		return ev, true
	default:
		return messages.Event{}, false
	}
}

// Quit queues a quit request, e.g. from a signal handler.
func (s *HookSource) Quit() {
	s.push(messages.Event{Kind: messages.EventQuit})
}

func (s *HookSource) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		hook.End()
		s.logger.Infow("Mouse hook stopped")
	})
}

// ChanSource is a Source fed by hand, used by headless runs and tests.
type ChanSource struct {
	C chan messages.Event
}

func NewChanSource(size int) *ChanSource {
	return &ChanSource{C: make(chan messages.Event, size)}
}

func (s *ChanSource) Poll() (messages.Event, bool) {
	select {
	case ev := <-s.C:
		return ev, true
	default:
		return messages.Event{}, false
	}
}

func (s *ChanSource) Close() {}
