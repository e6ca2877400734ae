package worker

import (
	"context"

	"go.uber.org/zap"

	"screen-translate/src/logutil"
	"screen-translate/src/messages"
	"screen-translate/src/status"
)

// Translator is the single backend the worker calls.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	IsLoopback() bool
}

// Worker is the single consumer of translation requests. One request is in
// flight at a time, so results come out in submission order.
type Worker struct {
	client Translator
	status *status.Bus
	logger *zap.SugaredLogger
}

// New creates a worker. A nil bus behaves as a permanently Ready service.
func New(client Translator, bus *status.Bus, logger *zap.SugaredLogger) *Worker {
	if bus == nil {
		bus = status.NewBus(status.Ready)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Worker{client: client, status: bus, logger: logger}
}

// Run blocks on the request channel until it is closed or ctx is done.
// Every received request produces exactly one result.
func (w *Worker) Run(ctx context.Context, requests <-chan messages.Request, results chan<- messages.Result) error {
	w.logger.Infow("Translation worker started", "loopback", w.client.IsLoopback())
	defer w.logger.Infow("Translation worker stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			res := w.Process(ctx, req)
			select {
			case results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Process performs one translate call and always returns a result; failures
// carry the classified message in Translated.
func (w *Worker) Process(ctx context.Context, req messages.Request) messages.Result {
	res, _ := w.Translate(ctx, req)
	return res
}

// Translate is Process with the failure also returned as a *Failure.
func (w *Worker) Translate(ctx context.Context, req messages.Request) (messages.Result, error) {
	res := messages.Result{Original: req.Text, Position: req.Position}

	translated, err := w.client.Translate(ctx, req.Text)
	if err == nil {
		w.logger.Infow("Translation complete",
			"original", logutil.Preview(req.Text, 40),
			"translated", logutil.Preview(translated, 40))
		res.Translated = translated
		return res, nil
	}

	st := w.status.Load()
	f := &Failure{Kind: Classify(st, w.client.IsLoopback(), err), Err: err}
	w.logger.Errorw("Translation failed", "error", err, "serverStatus", st.String(), "outcome", f.Kind.String())
	res.Translated = f.Error()
	return res, f
}
