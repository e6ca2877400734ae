package messages

import "fmt"

// EventKind tags the variants of Event.
type EventKind int

const (
	// EventSelectionDone is a completed left-button press/release pair.
	EventSelectionDone EventKind = iota
	// EventClick is any button press; the popup treats it as click-away.
	EventClick
	// EventQuit asks the control loop to stop.
	EventQuit
	// EventToggleMonitoring is the monitoring hotkey.
	EventToggleMonitoring
)

func (k EventKind) String() string {
	switch k {
	case EventSelectionDone:
		return "SelectionDone"
	case EventClick:
		return "Click"
	case EventQuit:
		return "Quit"
	case EventToggleMonitoring:
		return "ToggleMonitoring"
	default:
		return "unknown"
	}
}

// Event is the tagged union produced by every platform event source.
// Position is only meaningful for EventSelectionDone.
type Event struct {
	Kind     EventKind
	Position Position
}

// SelectionDone builds a selection event from press and release coordinates.
func SelectionDone(downX, downY, upX, upY int) Event {
	return Event{Kind: EventSelectionDone, Position: Position{DownX: downX, DownY: downY, UpX: upX, UpY: upY}}
}

// Position is a selection gesture in screen coordinates. It travels with a
// request end-to-end so the popup can be anchored next to the selection.
type Position struct {
	DownX int
	DownY int
	UpX   int
	UpY   int
}

// Displacement returns the absolute press/release distance on each axis.
func (p Position) Displacement() (dx, dy int) {
	return abs(p.UpX - p.DownX), abs(p.UpY - p.DownY)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)->(%d,%d)", p.DownX, p.DownY, p.UpX, p.UpY)
}

// Request is one accepted selection waiting for translation. It is created by
// the capture stage and consumed exactly once by the worker.
type Request struct {
	Text     string
	Position Position
}

// Result is produced exactly once per Request. Translated holds either the
// translation or a human-readable failure message.
type Result struct {
	Original   string
	Translated string
	Position   Position
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
