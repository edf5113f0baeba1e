package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/milk9111/mosaic/config"
	"github.com/milk9111/mosaic/links"
	"github.com/milk9111/mosaic/storage"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "mosaic",
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// options are the persistent flags shared by every command.
type options struct {
	configPath   string
	envFile      string
	verbose      bool
	document     string
	stateDir     string
	theme        string
	seed         uint64
	watch        bool
	allowOverlap bool
}

// loadConfig layers the config file, .env, MOSAIC_* variables, changed
// flags and finally a positional document argument.
func loadConfig(cmd *cobra.Command, opts *options, args []string) (config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("document") {
		cfg.Document = opts.document
	}
	if flags.Changed("state-dir") {
		cfg.Storage.Dir = opts.stateDir
	}
	if flags.Changed("theme") {
		cfg.Theme = opts.theme
	}
	if flags.Changed("seed") {
		cfg.Layout.Seed = opts.seed
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("allow-overlap") {
		cfg.Resize.AllowOverlap = opts.allowOverlap
	}
	if len(args) > 0 {
		cfg.Document = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openBackend returns the file backend in the state directory, or nil when
// it cannot be created; storage then runs from memory.
func openBackend(cfg config.Config, logger *log.Logger) storage.Backend {
	dir, err := cfg.StateDir()
	if err != nil {
		logger.Warn("no state directory", "err", err)
		return nil
	}
	fb, err := storage.NewFileBackend(dir, cfg.Storage.Quota)
	if err != nil {
		logger.Warn("state directory unavailable", "dir", dir, "err", err)
		return nil
	}
	logger.Debug("state directory", "dir", fb.Dir())
	return fb
}

// newStorage scopes backend to the configured document's origin.
func newStorage(backend storage.Backend, cfg config.Config, logger *log.Logger, notify func(string)) *storage.Storage {
	return storage.New(backend,
		storage.WithLogger(logger),
		storage.WithPrefix(storage.OriginPrefix(cfg.Origin())),
		storage.WithMaxAge(cfg.Storage.Expiry),
		storage.WithNotifier(notify),
	)
}

func newLinkService(cfg config.Config, client *http.Client, cache *storage.Storage, logger *log.Logger) *links.Service {
	providers := []links.Provider{links.HTMLProvider{Client: client}}
	if cfg.Links.APIEndpoint != "" {
		providers = append(providers, links.JSONProvider{Endpoint: cfg.Links.APIEndpoint, Client: client})
	}
	return links.NewService(providers, cache, cfg.LinksConfig(), logger)
}

func printPreviews(w io.Writer, previews []links.Preview) {
	for _, p := range previews {
		fmt.Fprintf(w, "%s\n  %s\n", p.Title, p.URL)
		if p.Description != "" {
			fmt.Fprintf(w, "  %s\n", p.Description)
		}
		fmt.Fprintf(w, "  via %s\n", p.Provider)
	}
}
