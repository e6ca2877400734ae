package main

import (
	"strings"
	"testing"

	"screen-translate/src/status"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"screen-translate", "-no-tray", "-env-file", "/tmp/.env"},
			out:  []string{"screen-translate", "--no-tray", "--env-file", "/tmp/.env"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"screen-translate", "-target-lang=ja", "-api-url=http://x/translate"},
			out:  []string{"screen-translate", "--target-lang=ja", "--api-url=http://x/translate"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"screen-translate", "--verbose", "-v", "-no-trayx"},
			out:  []string{"screen-translate", "--verbose", "-v", "-no-trayx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	err := cmd.ParseFlags([]string{"--no-tray", "--no-local-server", "--target-lang", "ja", "--api-url=https://example.com/translate", "-v"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.noTray || !opts.noLocalServer || !opts.verbose {
		t.Fatalf("Expected boolean flags set, got %+v", *opts)
	}
	if opts.targetLang != "ja" || opts.apiURL != "https://example.com/translate" {
		t.Fatalf("Unexpected string flags %+v", *opts)
	}
}

func TestTooltipFor(t *testing.T) {
	if got := tooltipFor(status.Starting, false); got != "Screen Translate" {
		t.Fatalf("unmanaged tooltip should be plain, got %q", got)
	}
	if got := tooltipFor(status.Starting, true); !strings.Contains(got, "loading") {
		t.Fatalf("expected loading tooltip, got %q", got)
	}
	if got := tooltipFor(status.Failed, true); !strings.Contains(got, "failed") {
		t.Fatalf("expected failed tooltip, got %q", got)
	}
	if got := tooltipFor(status.Ready, true); !strings.HasSuffix(got, "ready") {
		t.Fatalf("expected ready tooltip, got %q", got)
	}
}
