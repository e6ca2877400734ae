package clipboard

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"golang.design/x/clipboard"
)

// SettleDelay is how long the foreground app gets to answer the copy command.
const SettleDelay = 80 * time.Millisecond

var (
	initOnce sync.Once
	initErr  error
)

func Init() error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	return initErr
}

// Backend is the clipboard primitive set the grabber drives.
type Backend interface {
	Write(text string) error
	Read() (string, error)
	Copy() error
}

// System is the desktop clipboard plus the platform copy keystroke.
type System struct{}

func (System) Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (System) Read() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (System) Copy() error {
	return robotgo.KeyTap("c", copyModifier())
}

func copyModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Grabber copies the active selection through a Backend. Grabs are
// serialized so two callers never interleave clear/copy/read.
type Grabber struct {
	mu      sync.Mutex
	backend Backend
	settle  time.Duration
}

func NewGrabber(backend Backend) *Grabber {
	if backend == nil {
		backend = System{}
	}
	return &Grabber{backend: backend, settle: SettleDelay}
}

// Grab clears the clipboard, sends the copy command, waits for the
// foreground app and reads back what landed.
func (g *Grabber) Grab(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.backend.Write(""); err != nil {
		return "", err
	}
	if err := g.backend.Copy(); err != nil {
		return "", err
	}

	t := time.NewTimer(g.settle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	text, err := g.backend.Read()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\x00"), nil
}
