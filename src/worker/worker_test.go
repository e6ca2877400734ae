package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"screen-translate/src/messages"
	"screen-translate/src/status"
	"screen-translate/src/translator"
)

func localServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestProcessSuccess(t *testing.T) {
	srv := localServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Hello", body["q"])
		require.Equal(t, "id", body["target"])
		_, _ = w.Write([]byte(`{"translatedText":"Halo"}`))
	})

	client := translator.New(translator.Options{
		Endpoint: srv.URL + "/translate",
		Target:   translator.NewTargetLanguage("id"),
	})
	w := New(client, status.NewBus(status.Ready), nil)

	pos := messages.Position{DownX: 10, DownY: 20, UpX: 110, UpY: 20}
	res := w.Process(context.Background(), messages.Request{Text: "Hello", Position: pos})

	require.Equal(t, messages.Result{Original: "Hello", Translated: "Halo", Position: pos}, res)
}

func TestProcessServerFailedUsesFixedMessage(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	client := translator.New(translator.Options{Endpoint: "http://" + addr + "/translate"})
	w := New(client, status.NewBus(status.Failed), nil)

	res := w.Process(context.Background(), messages.Request{Text: "Hello"})
	require.Equal(t, MsgServerNotStarted, res.Translated)
	require.Equal(t, "Hello", res.Original)
}

func TestProcessStartingRefusedIsLoading(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	client := translator.New(translator.Options{Endpoint: "http://" + addr + "/translate"})
	w := New(client, status.NewBus(status.Starting), nil)

	res := w.Process(context.Background(), messages.Request{Text: "Hello"})
	require.Equal(t, MsgServerStillLoading, res.Translated)
}

type remoteStub struct {
	err error
}

func (r remoteStub) Translate(context.Context, string) (string, error) { return "", r.err }
func (r remoteStub) IsLoopback() bool                                  { return false }

func TestProcessRemoteBusy(t *testing.T) {
	srv := localServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	})

	// httptest binds to loopback, so report the endpoint as remote.
	_, err := translator.New(translator.Options{Endpoint: srv.URL}).Translate(context.Background(), "Hello")
	require.Error(t, err)

	w := New(remoteStub{err: err}, status.NewBus(status.Starting), nil)
	res := w.Process(context.Background(), messages.Request{Text: "Hello"})

	require.True(t, strings.HasPrefix(res.Translated, remoteAPIPrefix), res.Translated)
	require.Contains(t, res.Translated, "busy")
	require.NotEqual(t, MsgServerStillLoading, res.Translated)
}

type remoteClient struct {
	*translator.Client
}

func (remoteClient) IsLoopback() bool { return false }

func TestProcessSuccessWithoutTranslation(t *testing.T) {
	srv := localServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid request: missing q parameter"}`))
	})
	client := translator.New(translator.Options{Endpoint: srv.URL})

	res := New(client, status.NewBus(status.Ready), nil).Process(context.Background(), messages.Request{Text: "Hello"})
	require.Equal(t, MsgLocalUnavailable, res.Translated)

	res = New(remoteClient{client}, status.NewBus(status.Ready), nil).Process(context.Background(), messages.Request{Text: "Hello"})
	require.True(t, strings.HasPrefix(res.Translated, remoteAPIPrefix), res.Translated)
	require.Contains(t, res.Translated, "missing q parameter")
}

func TestTranslateReturnsFailure(t *testing.T) {
	srv := localServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	client := translator.New(translator.Options{Endpoint: srv.URL})

	res, err := New(remoteClient{client}, nil, nil).Translate(context.Background(), messages.Request{Text: "Hello"})
	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, RemoteAPIError, f.Kind)
	require.NotEmpty(t, res.Translated)
	require.Equal(t, res.Translated, err.Error())

	var te *translator.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, translator.KindDecode, te.Kind)
}

func TestRunPreservesOrder(t *testing.T) {
	srv := localServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": strings.ToUpper(body["q"])})
	})

	client := translator.New(translator.Options{Endpoint: srv.URL})
	w := New(client, nil, nil)

	requests := make(chan messages.Request, 8)
	results := make(chan messages.Result, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, requests, results) }()

	inputs := []string{"one", "two", "three", "four"}
	for _, in := range inputs {
		requests <- messages.Request{Text: in}
	}
	for _, in := range inputs {
		select {
		case res := <-results:
			require.Equal(t, in, res.Original)
			require.Equal(t, strings.ToUpper(in), res.Translated)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", in)
		}
	}

	close(requests)
	require.NoError(t, <-done)
}

func TestClassify(t *testing.T) {
	refused := &translator.Error{Kind: translator.KindRefused, Err: errors.New("dial")}
	badRequest := &translator.Error{Kind: translator.KindHTTPStatus, StatusCode: 400, Message: "bad lang"}

	tests := []struct {
		name     string
		status   status.Status
		loopback bool
		err      error
		want     FailureKind
	}{
		{"failed wins over transport", status.Failed, true, refused, ServerNotStarted},
		{"failed wins for remote", status.Failed, false, badRequest, ServerNotStarted},
		{"starting local refused", status.Starting, true, refused, ServerStillLoading},
		{"ready local refused", status.Ready, true, refused, ServerCrashedOrUnreachable},
		{"local non connectivity", status.Ready, true, badRequest, LocalUnavailable},
		{"remote refused", status.Starting, false, refused, RemoteAPIError},
		{"remote http error", status.Ready, false, badRequest, RemoteAPIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.status, tt.loopback, tt.err))
		})
	}
}

func TestFailureMessageRemoteCarriesError(t *testing.T) {
	msg := FailureMessage(RemoteAPIError, errors.New("quota exceeded"))
	require.Equal(t, remoteAPIPrefix+"quota exceeded", msg)
}
