// Package singleinstance keeps one resident per user session. The resident
// owns a loopback TCP port and answers PING with PONG; a second launch
// detects it and backs off.
package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	connDeadline = 3 * time.Second
)

// ErrAlreadyRunning means another resident answered on the guard port.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard is the resident's claim on the port.
type Guard struct {
	lis    net.Listener
	port   int
	logger *zap.SugaredLogger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Acquire binds the guard port. When the port is taken by a resident that
// answers PING it returns ErrAlreadyRunning.
func Acquire(ctx context.Context, port int, logger *zap.SugaredLogger) (*Guard, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if Detect(ctx, port) {
			logger.Infow("Resident already listening", "addr", addr)
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	g := &Guard{
		lis:    lis,
		port:   lis.Addr().(*net.TCPAddr).Port,
		logger: logger,
	}
	g.wg.Add(1)
	go g.acceptLoop()
	logger.Infow("Single-instance guard listening", "addr", lis.Addr().String())
	return g, nil
}

// Port returns the bound port.
func (g *Guard) Port() int { return g.port }

func (g *Guard) acceptLoop() {
	defer g.wg.Done()
	for {
		c, err := g.lis.Accept()
		if err != nil {
			return
		}
		g.serve(c)
	}
}

// serve answers one line and hangs up; anything but PING is ignored.
func (g *Guard) serve(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(connDeadline))
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil || line != pingRequest {
		g.logger.Debugw("Ignoring guard connection", "remote", c.RemoteAddr().String())
		return
	}
	g.logger.Debugw("PING -> PONG", "remote", c.RemoteAddr().String())
	_, _ = c.Write([]byte(pongResponse))
}

// Close releases the port and waits for the accept loop. Safe to call twice.
func (g *Guard) Close() error {
	var err error
	g.closeOnce.Do(func() {
		err = g.lis.Close()
		g.wg.Wait()
		g.logger.Infow("Single-instance guard released", "port", g.port)
	})
	return err
}
