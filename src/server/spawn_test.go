package server

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestHelperProcess is not a real test; Spawn tests re-exec the test binary
// into it to get a controllable child process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "exit":
		fmt.Fprintln(os.Stderr, "model download failed")
		os.Exit(3)
	default:
		time.Sleep(time.Minute)
		os.Exit(0)
	}
}

func helperSpec(t *testing.T, mode string) LaunchSpec {
	return LaunchSpec{
		Path:       os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		StderrPath: filepath.Join(t.TempDir(), "logs", "libretranslate.log"),
	}
}

func waitExited(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("helper process did not exit")
	}
}

func TestSpawnAndCloseRunningProcess(t *testing.T) {
	h, err := Spawn(helperSpec(t, "sleep"), 5000, nil)
	require.NoError(t, err)
	require.Equal(t, 5000, h.Port())
	require.NotZero(t, h.PID())

	exited, _ := h.Exited()
	require.False(t, exited)

	require.NoError(t, h.Close())
	exited, _ = h.Exited()
	require.True(t, exited)

	// second close is a no-op
	require.NoError(t, h.Close())
}

func TestCloseAfterExit(t *testing.T) {
	spec := helperSpec(t, "exit")
	h, err := Spawn(spec, 5000, nil)
	require.NoError(t, err)
	waitExited(t, h)

	exited, waitErr := h.Exited()
	require.True(t, exited)
	require.Error(t, waitErr)
	require.NoError(t, h.Close())

	logged, err := os.ReadFile(spec.StderrPath)
	require.NoError(t, err)
	require.Contains(t, string(logged), "model download failed")
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn(LaunchSpec{Path: filepath.Join(t.TempDir(), "missing")}, 5000, nil)
	require.ErrorIs(t, err, ErrSpawnFailed)
}

func TestSpawnWarnsWhenLogDirectoryIsUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	spec := helperSpec(t, "exit")
	spec.StderrPath = filepath.Join(blocker, "logs", "libretranslate.log")

	core, logs := observer.New(zapcore.WarnLevel)
	h, err := Spawn(spec, 5000, zap.New(core).Sugar())
	require.NoError(t, err)
	waitExited(t, h)
	require.NoError(t, h.Close())

	warned := logs.FilterMessage("Cannot create service log directory, discarding stderr").All()
	require.Len(t, warned, 1)
	require.Equal(t, spec.StderrPath, warned[0].ContextMap()["path"])
}
