package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a failed translate call at the point it is raised, so
// callers never have to re-derive intent from formatted error text.
type Kind int

const (
	KindTransport Kind = iota
	KindRefused
	KindTimeout
	KindHTTPStatus
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindRefused:
		return "refused"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http-status"
	case KindDecode:
		return "decode"
	default:
		return "transport"
	}
}

type Error struct {
	Kind       Kind
	StatusCode int
	// Message is the service-provided error text, or the raw body when the
	// service did not answer with {"error": ...}.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		if e.Message == "" {
			return fmt.Sprintf("translation service HTTP %d", e.StatusCode)
		}
		return fmt.Sprintf("translation service error (%d): %s", e.StatusCode, e.Message)
	case KindRefused:
		return fmt.Sprintf("connection refused: %v", e.Err)
	case KindTimeout:
		return "translation request timed out"
	case KindDecode:
		return fmt.Sprintf("invalid translation response: %v", e.Err)
	default:
		return fmt.Sprintf("translation request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Connectivity reports whether the failure means the service could not be
// reached or could not serve yet: refused, timed out, 5xx, or a
// service-side complaint about its language models.
func (e *Error) Connectivity() bool {
	switch e.Kind {
	case KindRefused, KindTimeout:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500 || mentionsModel(e.Message)
	default:
		return false
	}
}

// IsConnectivity unwraps err and reports Connectivity for *Error values.
func IsConnectivity(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Connectivity()
	}
	return false
}

// LibreTranslate reports missing or still-downloading argos models only
// through its error message.
func mentionsModel(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "model")
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindRefused, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Kind: KindRefused, Err: err}
	}
	return &Error{Kind: KindTransport, Err: err}
}
