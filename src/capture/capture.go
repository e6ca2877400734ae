// Package capture turns settled selections into translation requests.
package capture

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"screen-translate/src/logutil"
	"screen-translate/src/messages"
)

// MinTextLength is the shortest trimmed selection worth translating.
const MinTextLength = 2

// Grabber copies the current selection and returns it as text. An empty
// string with a nil error means nothing was selected.
type Grabber interface {
	Grab(ctx context.Context) (string, error)
}

// Stage is the sequential actor between the debouncer and the worker.
type Stage struct {
	grabber  Grabber
	maxLen   int
	signals  chan messages.Position
	requests chan<- messages.Request
	logger   *zap.SugaredLogger

	// last is only touched by Run.
	last string
}

func New(grabber Grabber, maxLen int, requests chan<- messages.Request, logger *zap.SugaredLogger) *Stage {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Stage{
		grabber:  grabber,
		maxLen:   maxLen,
		signals:  make(chan messages.Position, 1),
		requests: requests,
		logger:   logger,
	}
}

// Offer hands a settled selection to the stage without blocking. If one is
// already waiting it is replaced, so only the newest selection is grabbed.
func (s *Stage) Offer(pos messages.Position) {
	for {
		select {
		case s.signals <- pos:
			return
		default:
		}
		select {
		case stale := <-s.signals:
			s.logger.Debugw("Replacing pending selection", "stale", stale.String(), "position", pos.String())
		default:
		}
	}
}

// Run grabs and filters selections until ctx is done.
func (s *Stage) Run(ctx context.Context) error {
	for {
		var pos messages.Position
		select {
		case <-ctx.Done():
			return nil
		case pos = <-s.signals:
		}
	drain:
		for {
			select {
			case newer := <-s.signals:
				pos = newer
			default:
				break drain
			}
		}

		raw, err := s.grabber.Grab(ctx)
		if err != nil {
			s.logger.Warnw("Clipboard grab failed", "error", err)
			continue
		}
		text, ok := s.Accept(raw)
		if !ok {
			continue
		}
		s.logger.Infow("Selection captured", "text", logutil.Preview(text, 40), "position", pos.String())

		select {
		case s.requests <- messages.Request{Text: text, Position: pos}:
		case <-ctx.Done():
			return nil
		}
	}
}

// Accept applies the trim, length and dedup filters. Accepted text becomes
// the new dedup entry.
func (s *Stage) Accept(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(text)
	if n < MinTextLength || (s.maxLen > 0 && n > s.maxLen) {
		if n > 0 {
			s.logger.Debugw("Selection rejected by length", "runes", n, "max", s.maxLen)
		}
		return "", false
	}
	if text == s.last {
		s.logger.Debugw("Selection unchanged, skipping")
		return "", false
	}
	s.last = text
	return text, true
}
