// Package debounce turns raw selection gestures into one settled selection.
package debounce

import (
	"time"

	"screen-translate/src/messages"
)

const (
	// MinInterval is the floor applied to every settle interval.
	MinInterval = 50 * time.Millisecond
	// DragThreshold is the per-axis displacement above which a gesture is a drag.
	DragThreshold = 5
	// ClickProximity bounds the distance between the two clicks of a double-click.
	ClickProximity = 10
)

// Debouncer is owned by a single goroutine; it is not safe for concurrent use.
type Debouncer struct {
	interval    time.Duration
	doubleClick time.Duration

	armed    bool
	pending  messages.Position
	deadline time.Time

	hasClick   bool
	lastClick  time.Time
	lastClickX int
	lastClickY int
}

// New returns a debouncer that settles after interval and treats two clicks
// within doubleClick as a word-selection gesture.
func New(interval, doubleClick time.Duration) *Debouncer {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Debouncer{interval: interval, doubleClick: doubleClick}
}

func (d *Debouncer) Interval() time.Duration { return d.interval }

// Observe feeds one completed press/release pair. It reports whether the
// gesture armed (or re-armed) the settle timer.
func (d *Debouncer) Observe(pos messages.Position, now time.Time) bool {
	dx, dy := pos.Displacement()
	if dx > DragThreshold || dy > DragThreshold {
		d.arm(pos, now)
		return true
	}

	double := d.hasClick &&
		now.Sub(d.lastClick) <= d.doubleClick &&
		absInt(pos.UpX-d.lastClickX) < ClickProximity &&
		absInt(pos.UpY-d.lastClickY) < ClickProximity

	d.hasClick = true
	d.lastClick = now
	d.lastClickX = pos.UpX
	d.lastClickY = pos.UpY

	if double {
		d.arm(pos, now)
	}
	return double
}

// arm overwrites any pending target and restarts the window.
func (d *Debouncer) arm(pos messages.Position, now time.Time) {
	d.armed = true
	d.pending = pos
	d.deadline = now.Add(d.interval)
}

// Reset drops any pending selection and the remembered click.
func (d *Debouncer) Reset() {
	d.armed = false
	d.hasClick = false
}

// Pending reports whether a selection is waiting to settle.
func (d *Debouncer) Pending() bool { return d.armed }

// Due returns the pending selection once its window has elapsed, then disarms.
func (d *Debouncer) Due(now time.Time) (messages.Position, bool) {
	if !d.armed || now.Before(d.deadline) {
		return messages.Position{}, false
	}
	d.armed = false
	return d.pending, true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
