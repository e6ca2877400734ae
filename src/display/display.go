// Package display looks up monitor geometry for anchoring on-screen output.
package display

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"
)

var ErrNoDisplays = errors.New("no active displays found")

// Bounds returns the rectangle of every active display in virtual-screen
// coordinates.
func Bounds() ([]image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out, nil
}

// At returns the bounds of the display containing pt, falling back to the
// nearest display when pt lies outside all of them.
func At(pt image.Point) (image.Rectangle, error) {
	displays, err := Bounds()
	if err != nil {
		return image.Rectangle{}, err
	}
	return Containing(displays, pt), nil
}

// Containing picks the display for pt from a known set. displays must not
// be empty.
func Containing(displays []image.Rectangle, pt image.Point) image.Rectangle {
	best := displays[0]
	bestDist := -1
	for _, d := range displays {
		if pt.In(d) {
			return d
		}
		if dist := distanceSq(d, pt); bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

// Virtual returns the union of all displays.
func Virtual() (image.Rectangle, error) {
	displays, err := Bounds()
	if err != nil {
		return image.Rectangle{}, err
	}
	union := displays[0]
	for _, d := range displays[1:] {
		union = union.Union(d)
	}
	return union, nil
}

func distanceSq(r image.Rectangle, pt image.Point) int {
	dx := 0
	if pt.X < r.Min.X {
		dx = r.Min.X - pt.X
	} else if pt.X >= r.Max.X {
		dx = pt.X - r.Max.X + 1
	}
	dy := 0
	if pt.Y < r.Min.Y {
		dy = r.Min.Y - pt.Y
	} else if pt.Y >= r.Max.Y {
		dy = pt.Y - r.Max.Y + 1
	}
	return dx*dx + dy*dy
}
