package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	// PortProbeCount is how many consecutive ports are tried from the preferred one.
	PortProbeCount = 10
	loopbackHost   = "127.0.0.1"
	dialTimeout    = 200 * time.Millisecond
)

var ErrPortExhausted = errors.New("no available port")

// PortInUse reports whether something accepts TCP connections on the
// loopback port. Any dial failure counts as free.
func PortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(loopbackHost, strconv.Itoa(port)), dialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// NegotiatePort returns the first free port in [preferred, preferred+9].
// inUse defaults to PortInUse.
func NegotiatePort(preferred int, inUse func(int) bool) (int, error) {
	if inUse == nil {
		inUse = PortInUse
	}
	last := preferred + PortProbeCount - 1
	for port := preferred; port <= last && port <= 65535; port++ {
		if port < 1 {
			continue
		}
		if !inUse(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w in range %d-%d", ErrPortExhausted, preferred, last)
}
