package singleinstance

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()
	return port
}

func TestGuardAnswersPing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, err := Acquire(ctx, freePort(t), nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer g.Close()

	if !Detect(ctx, g.Port()) {
		t.Fatal("expected resident to answer PING")
	}
}

func TestSecondAcquireReportsRunning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := Acquire(ctx, freePort(t), nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer first.Close()

	if _, err := Acquire(ctx, first.Port(), nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestForeignListenerIsNotAResident(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	defer lis.Close()
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			_, _ = c.Write([]byte("HELLO\n"))
			c.Close()
		}
	}()
	port := lis.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if Detect(ctx, port) {
		t.Fatal("non-PONG reply must not count as a resident")
	}
	_, err = Acquire(ctx, port, nil)
	if err == nil || errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected plain bind error, got %v", err)
	}
}

func TestCloseReleasesPort(t *testing.T) {
	ctx := context.Background()
	g, err := Acquire(ctx, freePort(t), nil)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	port := g.Port()
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = g.Close()

	again, err := Acquire(ctx, port, nil)
	if err != nil {
		t.Fatalf("re-acquire after close: %v", err)
	}
	again.Close()
}
