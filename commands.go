package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alexraskin/linktree/internal/app"
	"github.com/alexraskin/linktree/internal/cache"
	"github.com/alexraskin/linktree/internal/config"
	"github.com/alexraskin/linktree/internal/icons"
	"github.com/alexraskin/linktree/internal/theme"
	"github.com/alexraskin/linktree/server"
)

type rootFlags struct {
	port      string
	config    string
	pageSize  int
	sourceURL string
	watch     bool
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "linktree",
		Short:         "Serve a personal link tree page from a TOML document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.config, "config", envOr("LINKTREE_CONFIG", "config/links.toml"), "Path or http(s) URL of the links document")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format (text, json)")
	cmd.Flags().StringVar(&flags.port, "port", envOr("PORT", "8080"), "Port to listen on")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", envInt("LINKTREE_PAGE_SIZE", 5), "Links shown per page")
	cmd.Flags().StringVar(&flags.sourceURL, "source-url", envOr("LINKTREE_SOURCE_URL", "https://github.com/alexraskin/linktree"), "Source code link shown in the footer (empty to hide)")
	cmd.Flags().BoolVar(&flags.watch, "watch", envBool("LINKTREE_WATCH", false), "Reload the links document when the file changes")

	cmd.AddCommand(newCheckCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the links document without serving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			loader := config.NewLoader(config.NewSource(flags.config))
			doc, err := loader.Check(ctx)
			if err != nil {
				return err
			}

			background := "disabled"
			if doc.Theme.Enabled() {
				background = doc.Theme.BackgroundImage
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\nProfile: %s\nLinks: %d\nBackground: %s\n",
				flags.config, doc.Profile.Name, len(doc.Links), background)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), server.FormatBuildVersion(version))
			return err
		},
	}
}

func runServe(flags *rootFlags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	tmpl, err := server.ParseTemplates(templatesFiles)
	if err != nil {
		return err
	}

	source := config.NewSource(flags.config)
	loader := config.NewLoader(source)
	preloader := theme.NewImagePreloader(staticFiles, nil, cache.NewCache(time.Hour))
	background := theme.NewController(preloader)
	defer background.Close()

	site := app.NewSite(loader, background, flags.pageSize)
	site.Start(ctx)

	srv := server.NewServer(version, flags.port, http.FS(staticFiles), tmpl.ExecuteTemplate, site, icons.Builtin(), background, flags.sourceURL)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Started server", slog.String("listen_addr", ":"+flags.port), slog.String("config", flags.config))
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if flags.watch {
		if _, local := source.(config.FileSource); !local {
			slog.Warn("Watching is only supported for local files", slog.String("config", flags.config))
		} else {
			w, err := app.NewWatcher(flags.config, site)
			if err != nil {
				stop()
				_ = g.Wait()
				return err
			}
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	return g.Wait()
}

func setupLogging(cmd *cobra.Command, flags *rootFlags) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(flags.logFormat) {
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		return errors.New("log format must be text or json")
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
