package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"screen-translate/src/capture"
	"screen-translate/src/config"
	"screen-translate/src/messages"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/status"
	"screen-translate/src/worker"
)

const (
	maxInputSizeMB = 1
	maxInputSize   = maxInputSizeMB * 1024 * 1024

	defaultReadyWait = 3 * time.Minute
	readyPoll        = 500 * time.Millisecond
)

type cliOptions struct {
	text          string
	filePath      string
	jsonOutput    bool
	verbose       bool
	envFile       string
	apiURL        string
	targetLang    string
	noLocalServer bool
	wait          time.Duration
}

// TranslationResult is the --json output.
type TranslationResult struct {
	Original   string  `json:"original"`
	Translated string  `json:"translated"`
	Target     string  `json:"target"`
	Endpoint   string  `json:"endpoint"`
	Duration   float64 `json:"duration_seconds"`
	Timestamp  string  `json:"timestamp"`
	CharCount  int     `json:"character_count"`
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"translate"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "translate",
		Short:         "Translate text through the configured LibreTranslate endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "Text to translate")
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Read text from a file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (highest precedence)")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "Translate endpoint, overrides API_URL")
	cmd.Flags().StringVar(&opts.targetLang, "target-lang", "", "Target language, overrides TARGET_LANG")
	cmd.Flags().BoolVar(&opts.noLocalServer, "no-local-server", false, "Do not start the local LibreTranslate server")
	cmd.Flags().DurationVar(&opts.wait, "wait", defaultReadyWait, "How long to wait for a local server to become ready")
	cmd.MarkFlagsMutuallyExclusive("text", "file")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	long := []string{"text", "file", "json", "verbose", "env-file", "api-url", "target-lang", "no-local-server", "wait"}

	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := readInput(opts, stdin)
	if err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvFileOverride:    opts.envFile,
			APIURLOverride:     opts.apiURL,
			TargetLangOverride: opts.targetLang,
			DisableLocalServer: opts.noLocalServer,
		},
		Verbose: opts.verbose,
		Quiet:   !opts.verbose,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	text = strings.TrimSpace(text)
	if err := validateText(text, rt.Config.MaxTextLength); err != nil {
		return err
	}
	if err := rt.StartService(ctx); err != nil {
		return err
	}
	st := waitReady(ctx, rt.Status, opts.wait)
	logger.Debugw("Service status before translating", "status", st.String())

	client := rt.Translator()
	w := worker.New(client, rt.Status, logger)
	start := time.Now()
	res, err := w.Translate(ctx, messages.Request{Text: text})
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	return outputResult(stdout, TranslationResult{
		Original:   res.Original,
		Translated: res.Translated,
		Target:     rt.Language.Get(),
		Endpoint:   client.Endpoint(),
		Duration:   elapsed.Seconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		CharCount:  utf8.RuneCountInString(res.Translated),
	}, opts.jsonOutput)
}

func readInput(opts cliOptions, stdin io.Reader) (string, error) {
	if opts.text != "" {
		return opts.text, nil
	}
	var r io.Reader
	switch opts.filePath {
	case "", "-":
		r = stdin
	default:
		f, err := os.Open(opts.filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", opts.filePath, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("input exceeds maximum size of %d MB", maxInputSizeMB)
	}
	return string(data), nil
}

// validateText applies the same length bounds as on-screen selections.
func validateText(text string, maxLen int) error {
	n := utf8.RuneCountInString(text)
	if n < capture.MinTextLength {
		return fmt.Errorf("text must be at least %d characters", capture.MinTextLength)
	}
	if maxLen > 0 && n > maxLen {
		return fmt.Errorf("text is %d characters, limit is %d", n, maxLen)
	}
	return nil
}

// waitReady polls the status until it is terminal or wait runs out.
func waitReady(ctx context.Context, bus *status.Bus, wait time.Duration) status.Status {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()
	for {
		if st := bus.Load(); st.Terminal() {
			return st
		}
		select {
		case <-ctx.Done():
			return bus.Load()
		case <-deadline.C:
			return bus.Load()
		case <-ticker.C:
		}
	}
}

func outputResult(w io.Writer, res TranslationResult, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprintln(w, res.Translated)
	return err
}
