package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"screen-translate/src/status"
)

func waitTerminal(t *testing.T, bus *status.Bus) status.Status {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if st := bus.Load(); st.Terminal() {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("status never became terminal")
	return status.Starting
}

func TestSupervisorAdoptsRunningService(t *testing.T) {
	bus := status.NewBus(status.Starting)
	locator := Locator{LookPath: func(string) (string, error) {
		t.Fatal("discovery must be skipped when the service is already running")
		return "", nil
	}}
	s := New(Options{
		PreferredPort: 5000,
		Locator:       &locator,
		Monitor:       MonitorOptions{Probe: func(context.Context, int) bool { return true }},
	}, bus, nil)

	port, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5000, port)
	require.Equal(t, status.Ready, bus.Load())
	require.NoError(t, s.Close())
}

func TestSupervisorNotFoundFails(t *testing.T) {
	bus := status.NewBus(status.Starting)
	locator := Locator{ExeDir: t.TempDir(), GOOS: "linux", LookPath: noPath}
	s := New(Options{
		PreferredPort: 5000,
		Locator:       &locator,
		Monitor:       MonitorOptions{Probe: func(context.Context, int) bool { return false }},
	}, bus, nil)

	_, err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrExecutableNotFound)
	require.Equal(t, status.Failed, bus.Load())
	require.NoError(t, s.Close())
}

func TestSupervisorPortExhaustedFails(t *testing.T) {
	bus := status.NewBus(status.Starting)
	locator := Locator{GOOS: "linux", LookPath: func(string) (string, error) { return os.Args[0], nil }}
	s := New(Options{
		PreferredPort: 5000,
		Locator:       &locator,
		PortInUse:     func(int) bool { return true },
		Monitor:       MonitorOptions{Probe: func(context.Context, int) bool { return false }},
	}, bus, nil)

	_, err := s.Start(context.Background())
	require.True(t, errors.Is(err, ErrPortExhausted), "got %v", err)
	require.Equal(t, status.Failed, bus.Load())
}

func TestSupervisorDetectsCrash(t *testing.T) {
	// The test binary rejects the service flags and exits at once.
	bus := status.NewBus(status.Starting)
	locator := Locator{PythonPath: os.Args[0], HomeDir: t.TempDir(), GOOS: "linux", LookPath: noPath}
	s := New(Options{
		PythonPath:    os.Args[0],
		PreferredPort: 5000,
		Locator:       &locator,
		PortInUse:     func(p int) bool { return p < 5004 },
		LogPath:       filepath.Join(t.TempDir(), "libretranslate.log"),
		Monitor: MonitorOptions{
			Interval: 10 * time.Millisecond,
			Timeout:  10 * time.Second,
			Probe:    func(context.Context, int) bool { return false },
		},
	}, bus, nil)
	defer s.Close()

	port, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5004, port)

	require.Equal(t, status.Failed, waitTerminal(t, bus))
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.MonitorErr(), ErrProcessCrashed)
}

func TestSupervisorStartsOnce(t *testing.T) {
	s := New(Options{
		PreferredPort: 5000,
		Monitor:       MonitorOptions{Probe: func(context.Context, int) bool { return true }},
	}, nil, nil)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	_, err = s.Start(context.Background())
	require.ErrorIs(t, err, ErrAlreadyStarted)
}
