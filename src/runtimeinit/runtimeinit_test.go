package runtimeinit

import (
	"context"
	"errors"
	"testing"

	"screen-translate/src/config"
	"screen-translate/src/server"
	"screen-translate/src/status"
)

func TestResolveEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		apiURL string
		chosen int
		want   string
	}{
		{"same port", "http://127.0.0.1:5000/translate", 5000, "http://127.0.0.1:5000/translate"},
		{"rewritten", "http://localhost:5000/translate", 5003, "http://127.0.0.1:5003/translate"},
		{"remote untouched", "https://libretranslate.com/translate", 5003, "https://libretranslate.com/translate"},
		{"no port chosen", "http://127.0.0.1:5000/translate", 0, "http://127.0.0.1:5000/translate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveEndpoint(tc.apiURL, 5000, tc.chosen); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestManagesLocalServer(t *testing.T) {
	cfg := config.Defaults()
	cfg.APIURL = "http://127.0.0.1:5000/translate"
	if !ManagesLocalServer(cfg) {
		t.Error("loopback url with local server enabled should be managed")
	}
	cfg.APIURL = "https://libretranslate.com/translate"
	if ManagesLocalServer(cfg) {
		t.Error("remote url should not be managed")
	}
	cfg.APIURL = "http://127.0.0.1:5000/translate"
	cfg.StartLocalServer = false
	if ManagesLocalServer(cfg) {
		t.Error("disabled local server should not be managed")
	}
}

func TestBootstrapRemote(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("TARGET_LANG", "zh")

	rt, err := Bootstrap(Options{LoadOptions: config.LoadOptions{
		APIURLOverride: "https://libretranslate.example.com/translate",
	}})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer rt.Close()

	if err := rt.StartService(context.Background()); err != nil {
		t.Fatalf("StartService: %v", err)
	}
	if rt.Status.Load() != status.Ready {
		t.Fatalf("expected Ready for a remote api, got %v", rt.Status.Load())
	}
	if err := rt.StartService(context.Background()); !errors.Is(err, server.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	c := rt.Translator()
	if c.Endpoint() != "https://libretranslate.example.com/translate" || c.IsLoopback() {
		t.Fatalf("unexpected endpoint %q", c.Endpoint())
	}
	if rt.Language.Get() != "zh" {
		t.Fatalf("expected target zh, got %q", rt.Language.Get())
	}
}
