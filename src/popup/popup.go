// Package popup presents translation results next to the selection.
package popup

import (
	"image"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"screen-translate/src/logutil"
	"screen-translate/src/messages"
)

const (
	// ReadingSpeed is characters per second used to size the auto-hide time.
	ReadingSpeed = 15.0
	minReading   = 2 * time.Second
	maxReading   = 20 * time.Second
	// linger is added after the reading time before the popup hides.
	linger = 3 * time.Second

	// Gap between the selection and the popup edge.
	Gap = 8
	// Margin keeps the popup off the display edge.
	Margin = 4
)

// Content is one popup to show.
type Content struct {
	Original   string
	Translated string
	Position   messages.Position
	// Duration is how long the popup stays up without interaction.
	Duration time.Duration
}

// Presenter replaces the current popup, or removes it.
type Presenter interface {
	Show(c Content)
	Dismiss()
	Close()
}

// AutoHide returns how long translated should stay visible: reading time at
// ReadingSpeed clamped to 2..20s plus a short linger, never less than floor.
func AutoHide(translated string, floor time.Duration) time.Duration {
	secs := float64(utf8.RuneCountInString(translated)) / ReadingSpeed
	reading := time.Duration(math.Round(secs*1000)) * time.Millisecond
	if reading < minReading {
		reading = minReading
	}
	if reading > maxReading {
		reading = maxReading
	}
	d := reading + linger
	if d < floor {
		d = floor
	}
	return d
}

// Center is the middle of the selection, used to pick a display.
func Center(pos messages.Position) image.Point {
	return image.Pt((pos.DownX+pos.UpX)/2, (pos.DownY+pos.UpY)/2)
}

// Place positions a popup of size centred on the selection: above it when
// there is room on the display, otherwise below, then clamped into area.
func Place(pos messages.Position, size image.Point, area image.Rectangle) image.Rectangle {
	top := min(pos.DownY, pos.UpY)
	bottom := max(pos.DownY, pos.UpY)
	cx := (pos.DownX + pos.UpX) / 2

	x := cx - size.X/2
	var y int
	if top-size.Y-Gap >= area.Min.Y+Margin {
		y = top - size.Y - Gap
	} else {
		y = bottom + Gap
	}

	if x+size.X > area.Max.X-Margin {
		x = area.Max.X - size.X - Margin
	}
	if x < area.Min.X+Margin {
		x = area.Min.X + Margin
	}
	if y+size.Y > area.Max.Y-Margin {
		y = area.Max.Y - size.Y - Margin
	}
	if y < area.Min.Y+Margin {
		y = area.Min.Y + Margin
	}
	return image.Rect(x, y, x+size.X, y+size.Y)
}

// LogPresenter writes results to the log. It backs headless runs and
// platforms without a native popup.
type LogPresenter struct {
	Logger *zap.SugaredLogger
}

func (p LogPresenter) Show(c Content) {
	if p.Logger == nil {
		return
	}
	p.Logger.Infow("Translation",
		"original", logutil.Preview(c.Original, 40),
		"translated", c.Translated,
		"position", c.Position.String(),
		"duration", c.Duration.String())
}

func (p LogPresenter) Dismiss() {}

func (p LogPresenter) Close() {}
