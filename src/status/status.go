// Package status carries the health of the local translation service from
// the supervisor to the worker.
package status

import "sync/atomic"

type Status int32

const (
	Starting Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool { return s == Ready || s == Failed }

// Bus is a shared tri-state value. Ready and Failed are write-once: the
// first terminal write wins and later writes are ignored.
type Bus struct {
	v atomic.Int32
}

func NewBus(initial Status) *Bus {
	b := &Bus{}
	b.v.Store(int32(initial))
	return b
}

func (b *Bus) Load() Status { return Status(b.v.Load()) }

// Resolve moves Starting to a terminal value. It returns false when the bus
// already holds a terminal value or next is not terminal.
func (b *Bus) Resolve(next Status) bool {
	if !next.Terminal() {
		return false
	}
	return b.v.CompareAndSwap(int32(Starting), int32(next))
}
