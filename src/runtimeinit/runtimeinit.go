// Package runtimeinit wires configuration, logging and the translation
// backend for both the tray app and the headless CLI.
package runtimeinit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/logutil"
	"screen-translate/src/server"
	"screen-translate/src/status"
	"screen-translate/src/translator"
)

// ServiceLogName is the file that receives the local service's stderr.
const ServiceLogName = "libretranslate.log"

type Options struct {
	LoadOptions config.LoadOptions
	Verbose     bool
	// Quiet drops console output below warnings.
	Quiet bool
	// InitClipboard is set by callers that grab selections.
	InitClipboard bool
}

// Runtime is the shared state built once per process.
type Runtime struct {
	Config   *config.Config
	Logger   *zap.SugaredLogger
	Status   *status.Bus
	Language *translator.TargetLanguage

	supervisor *server.Supervisor
	endpoint   string
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dir := config.AppDir()
	if cfg.EnableFileLogging {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create app directory: %w", err)
		}
	}
	logger, err := logutil.Setup(logutil.Options{
		Dir:               dir,
		EnableFileLogging: cfg.EnableFileLogging,
		Verbose:           opts.Verbose,
		Quiet:             opts.Quiet,
	})
	if err != nil {
		logger.Warnw("File logging disabled", "error", err)
	}
	zap.ReplaceGlobals(logger.Desugar())

	logger.Infow("Configuration loaded",
		"envFile", cfg.EnvPath,
		"apiURL", cfg.APIURL,
		"apiKey", logutil.RedactKey(cfg.APIKey),
		"source", cfg.SourceLang,
		"target", cfg.TargetLang,
		"pollInterval", cfg.PollInterval().String(),
		"maxTextLength", cfg.MaxTextLength,
		"localServer", cfg.StartLocalServer)

	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Language: translator.NewTargetLanguage(cfg.TargetLang),
		endpoint: cfg.APIURL,
	}, nil
}

// ManagesLocalServer reports whether this process should supervise its own
// LibreTranslate: only when enabled and api_url points at this machine.
func ManagesLocalServer(cfg *config.Config) bool {
	return cfg.StartLocalServer && config.IsLoopbackURL(cfg.APIURL)
}

// ResolveEndpoint rewrites a loopback api_url to the port the supervisor
// actually chose. Remote URLs and unchanged ports are returned as is.
func ResolveEndpoint(apiURL string, configured, chosen int) string {
	if chosen == 0 || chosen == configured || !config.IsLoopbackURL(apiURL) {
		return apiURL
	}
	return config.LocalTranslateURL(chosen)
}

// StartService starts the local service supervisor when this process owns
// one. Otherwise the status is Ready from the start. A failed start is
// reported through the status bus, not the returned error, which is only
// set for programming errors.
func (r *Runtime) StartService(ctx context.Context) error {
	if r.Status != nil {
		return server.ErrAlreadyStarted
	}
	if !ManagesLocalServer(r.Config) {
		r.Status = status.NewBus(status.Ready)
		r.Logger.Infow("Local server disabled, using api_url directly", "endpoint", r.endpoint)
		return nil
	}

	r.Status = status.NewBus(status.Starting)
	r.supervisor = server.New(server.Options{
		PythonPath:    r.Config.PythonPath,
		PreferredPort: r.Config.APIPort,
		LoadLanguages: r.Config.LoadLanguages,
		LogPath:       filepath.Join(config.AppDir(), ServiceLogName),
	}, r.Status, r.Logger.Named("server"))

	port, err := r.supervisor.Start(ctx)
	if err != nil {
		r.Logger.Warnw("Translation will report the server as not started", "error", err)
		return nil
	}
	r.endpoint = ResolveEndpoint(r.Config.APIURL, r.Config.APIPort, port)
	if r.endpoint != r.Config.APIURL {
		r.Logger.Infow("API URL rewritten to negotiated port", "endpoint", r.endpoint)
	}
	return nil
}

// Endpoint is the translate URL after any port rewrite.
func (r *Runtime) Endpoint() string { return r.endpoint }

// Translator builds the client for the resolved endpoint.
func (r *Runtime) Translator() *translator.Client {
	return translator.New(translator.Options{
		Endpoint:   r.endpoint,
		APIKey:     r.Config.APIKey,
		SourceLang: r.Config.SourceLang,
		Target:     r.Language,
	})
}

// Close tears down the supervised service, if any, and flushes the log.
func (r *Runtime) Close() error {
	var err error
	if r.supervisor != nil {
		err = r.supervisor.Close()
	}
	_ = r.Logger.Sync()
	return err
}
