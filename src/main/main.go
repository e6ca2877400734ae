package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/getlantern/systray"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/display"
	"screen-translate/src/eventloop"
	"screen-translate/src/hotkey"
	"screen-translate/src/mousehook"
	"screen-translate/src/notification"
	"screen-translate/src/popup"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/singleinstance"
	"screen-translate/src/status"
	"screen-translate/src/tray"
)

type mainOptions struct {
	envFile       string
	apiURL        string
	targetLang    string
	noLocalServer bool
	noTray        bool
	verbose       bool
}

func init() {
	// systray and the hook both expect the main goroutine on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-translate"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate",
		Short:         "Translate selected on-screen text into a popup",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (highest precedence)")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "Translate endpoint, overrides API_URL")
	cmd.Flags().StringVar(&opts.targetLang, "target-lang", "", "Target language, overrides TARGET_LANG")
	cmd.Flags().BoolVar(&opts.noLocalServer, "no-local-server", false, "Do not start the local LibreTranslate server")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without a tray icon")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to cobra's double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	long := []string{"env-file", "api-url", "target-lang", "no-local-server", "no-tray", "verbose"}

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

func runResident(opts mainOptions) error {
	dpi := enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvFileOverride:    opts.envFile,
			APIURLOverride:     opts.apiURL,
			TargetLangOverride: opts.targetLang,
			DisableLocalServer: opts.noLocalServer,
		},
		Verbose:       opts.verbose,
		InitClipboard: true,
	})
	if err != nil {
		notification.Fatal(err.Error())
		return err
	}
	logger := rt.Logger
	cfg := rt.Config
	logger.Infow("Screen Translate starting", "dpi", dpi, "os", runtime.GOOS)
	logDisplays(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guard, err := singleinstance.Acquire(ctx, cfg.SingleInstancePort, logger.Named("singleinstance"))
	switch {
	case errors.Is(err, singleinstance.ErrAlreadyRunning):
		notification.ShowInfo(notification.Title, "Screen Translate is already running.\nLook for its icon in the notification area.")
		_ = rt.Close()
		return nil
	case err != nil:
		logger.Warnw("Single-instance guard unavailable, continuing", "error", err)
	default:
		defer guard.Close()
	}

	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warnw("Server teardown reported an error", "error", err)
		}
	}()
	if err := rt.StartService(ctx); err != nil {
		return err
	}

	var toggle *hotkey.Combo
	if cfg.ToggleHotkey != "" {
		if toggle, err = hotkey.Parse(cfg.ToggleHotkey); err != nil {
			logger.Warnw("Ignoring TOGGLE_HOTKEY", "error", err)
		}
	}
	source := mousehook.Start(toggle, logger.Named("hook"))
	defer source.Close()

	presenter := popup.NewNative(logger.Named("popup"))
	defer presenter.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case sig := <-signals:
			logger.Infow("Signal received, shutting down", "signal", sig.String())
			source.Quit()
		case <-ctx.Done():
		}
	}()

	loopOpts := eventloop.Options{
		Source:        source,
		Grabber:       clipboard.NewGrabber(clipboard.System{}),
		Translator:    rt.Translator(),
		Status:        rt.Status,
		Presenter:     presenter,
		Language:      rt.Language,
		PollInterval:  cfg.PollInterval(),
		DoubleClick:   mousehook.DoubleClickInterval(),
		MaxTextLength: cfg.MaxTextLength,
		PopupFloor:    cfg.PopupDuration(),
		Monitoring:    true,
	}
	managed := runtimeinit.ManagesLocalServer(cfg)

	if opts.noTray {
		loopOpts.OnStatus = func(st status.Status) {
			logger.Infow("Service status", "status", tooltipFor(st, managed))
		}
		return eventloop.New(loopOpts, logger.Named("loop")).Run(ctx)
	}

	tr := tray.New(tray.Options{
		Languages:  cfg.Languages(),
		Current:    cfg.TargetLang,
		Monitoring: true,
	}, logger.Named("tray"))
	defer tr.Close()
	loopOpts.Actions = tr.Actions()
	loopOpts.OnStatus = func(st status.Status) { tr.SetTooltip(tooltipFor(st, managed)) }
	loopOpts.OnMonitoring = tr.SetMonitoring

	ready := make(chan struct{})
	loopDone := make(chan error, 1)
	systray.Run(func() {
		tr.Build()
		close(ready)
		go func() {
			loopDone <- eventloop.New(loopOpts, logger.Named("loop")).Run(ctx)
			systray.Quit()
		}()
	}, func() {
		logger.Infow("Tray exited")
		cancel()
	})

	select {
	case <-ready:
		return <-loopDone
	default:
		err := errors.New("the tray icon could not be created")
		notification.Fatal(err.Error())
		return err
	}
}

// tooltipFor describes the service state for the tray tooltip.
func tooltipFor(st status.Status, managed bool) string {
	if !managed {
		return tray.Title
	}
	switch st {
	case status.Starting:
		return tray.Title + " - LibreTranslate loading..."
	case status.Failed:
		return tray.Title + " - LibreTranslate failed to start"
	default:
		return tray.Title + " - ready"
	}
}

func logDisplays(logger *zap.SugaredLogger) {
	bounds, err := display.Bounds()
	if err != nil {
		logger.Warnw("Display query failed", "error", err)
		return
	}
	for i, b := range bounds {
		logger.Debugw("Display", "index", i, "bounds", b.String())
	}
	logger.Infow("Displays detected", "count", len(bounds))
}
