package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/milk9111/mosaic/assets"
	"github.com/milk9111/mosaic/config"
	"github.com/milk9111/mosaic/links"
	"github.com/milk9111/mosaic/metadata"
	"github.com/milk9111/mosaic/state"
)

const version = "0.3.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "mosaic [document]",
		Short: "Arrange a collection of images on a free-form canvas",
		Long: `mosaic shows every image listed in a metadata document as a tile that can be
dragged and resized. Positions and sizes are saved per document.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "environment file loaded before MOSAIC_* variables are read")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.StringVarP(&opts.document, "document", "d", "", "metadata document path or URL")
	pf.StringVar(&opts.stateDir, "state-dir", "", "directory holding saved layouts")

	f := cmd.Flags()
	f.StringVar(&opts.theme, "theme", "", "initial theme when none is saved (light or dark)")
	f.Uint64Var(&opts.seed, "seed", 0, "fixed shuffle seed for first-visit placement")
	f.BoolVar(&opts.watch, "watch", true, "reload when the metadata or links document changes")
	f.BoolVar(&opts.allowOverlap, "allow-overlap", true, "keep resizes that overlap another tile")

	cmd.AddCommand(newInitCmd(), newIndexCmd(opts), newResetCmd(opts), newLinksCmd(opts))
	return cmd
}

func runView(cmd *cobra.Command, opts *options, args []string) error {
	logger := loggerFromContext(cmd.Context())
	cfg, err := loadConfig(cmd, opts, args)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game, err := NewGame(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer game.Close()

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("mosaic: run: %w", err)
	}
	return game.Err()
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented configuration file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("mosaic: init: %s already exists (use --force)", path)
			}
			data, err := assets.LoadFile(assets.SampleConfig)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("mosaic: init: %w", err)
			}
			logger.Info("wrote config", "path", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newIndexCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: "Write the metadata document for the images under root",
		Long: `index reads the header of every image in root/` + metadata.MediaDir + ` (or root itself when
that directory is missing) and writes [filename, [width, height]] entries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			if out == "" {
				out = filepath.Join(root, metadata.DefaultDocument)
			}
			records, err := metadata.Index(root, logger)
			if err != nil {
				return err
			}
			if err := metadata.Write(out, records); err != nil {
				return err
			}
			logger.Info("wrote metadata", "path", out, "images", len(records))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <root>/"+metadata.DefaultDocument+")")
	return cmd
}

func newResetCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reset [document]",
		Short: "Forget the saved layout for a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			backend := openBackend(cfg, logger)
			if backend == nil {
				return errors.New("mosaic: reset: no persistent storage")
			}
			st := newStorage(backend, cfg, logger, nil)
			if all {
				st.Clear()
				logger.Info("cleared all saved state", "document", cfg.Origin())
				return nil
			}
			store := state.New(st, nil, state.WithLogger(logger), state.WithExpiry(cfg.Storage.Expiry))
			n := len(store.AllImageStates())
			store.ResetAllStates()
			logger.Info("reset layout", "document", cfg.Origin(), "placements", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also forget the theme and cached link previews")
	return cmd
}

func newLinksCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links [file]",
		Short: "Print previews for the links in a markdown document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg, err := loadConfig(cmd, opts, nil)
			if err != nil {
				return err
			}
			path := cfg.Links.Document
			if len(args) > 0 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("mosaic: links: %w", err)
			}
			urls := links.Extract(string(data))
			if len(urls) == 0 {
				logger.Info("no links found", "path", path)
				return nil
			}
			client := &http.Client{Timeout: cfg.FetchTimeout}
			svc := newLinkService(cfg, client, newStorage(openBackend(cfg, logger), cfg, logger, nil), logger)
			printPreviews(cmd.OutOrStdout(), svc.PreviewAll(cmd.Context(), urls))
			return nil
		},
	}
	return cmd
}
