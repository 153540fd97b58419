package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/prerend-dev/prerend"
	"github.com/prerend-dev/prerend/internal/config"
	"github.com/prerend-dev/prerend/internal/dev"
	"github.com/prerend-dev/prerend/pkg/assets"
	"github.com/prerend-dev/prerend/pkg/middleware"
	"github.com/prerend-dev/prerend/pkg/render"
	"github.com/prerend-dev/prerend/pkg/vdom"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		devMode    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SSR gateway",
		Long: `Start the SSR gateway.

Configuration is read from prerend.json (found by walking up from the
working directory, or --config), then overlaid with PREREND_* environment
variables. The gateway refuses to start without a base origin or with an
unreadable module map.

Without registered pages the gateway renders the application shell for
every route: a marked root element, the route's lazy module bundles, and
the serialized transfer state. Applications embedding the library
register their own page functions instead.

Examples:
  prerend serve
  prerend serve --config=deploy/prerend.json
  PREREND_BASE_ORIGIN=http://localhost:4000 prerend serve --port=4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, host, devMode)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to prerend.json")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (live reload)")

	return cmd
}

func runServe(configPath string, port int, host string, devMode bool) error {
	icfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if port > 0 {
		icfg.Port = port
	}
	if host != "" {
		icfg.Host = host
	}
	if devMode {
		icfg.Dev = true
	}

	if err := icfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pull the client bundle down before the gateway starts serving it.
	if icfg.Assets.S3Bucket != "" {
		syncer, err := assets.NewS3SyncerFromEnv(ctx, icfg.Assets.S3Bucket, icfg.Assets.S3Prefix, logger)
		if err != nil {
			return err
		}
		n, err := syncer.Sync(ctx, icfg.StaticPath())
		if err != nil {
			return err
		}
		success("Synced %d bundle files from s3://%s", n, icfg.Assets.S3Bucket)
	}

	app, err := prerend.New(buildConfig(icfg, logger))
	if err != nil {
		return err
	}
	app.Page("/*", shellPage)

	classify := func(r *http.Request) string { return string(app.Classify(r)) }
	var handler http.Handler = app
	handler = middleware.Prometheus(middleware.WithClassifier(classify))(handler)
	handler = middleware.OpenTelemetry(middleware.WithTraceClassifier(classify))(handler)

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version})
	})
	mux.Handle("/*", handler)

	// Dev mode: watch the bundle directory and push reloads.
	if icfg.Dev && app.Reload() != nil {
		watcher := dev.NewWatcher(dev.WatcherConfig{Dir: icfg.StaticPath()})
		watcher.OnChange(func(c dev.Change) {
			if c.Type == dev.ChangeCSS {
				app.Reload().NotifyCSS(filepath.Base(c.Path))
				return
			}
			app.Reload().NotifyReload()
		})
		go watcher.Start(ctx)
		defer watcher.Stop()
	}

	srv := &http.Server{
		Addr:    icfg.Addr(),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", icfg.Addr(), "baseOrigin", icfg.BaseOrigin, "dev", icfg.Dev)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if app.Reload() != nil {
		app.Reload().Close()
	}
	success("Stopped")
	return nil
}

// loadConfig resolves configuration from --config, the nearest
// prerend.json, or the environment alone.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		// No config file anywhere: the environment must carry everything.
		return config.FromEnv()
	}
	return config.Load(root)
}

// buildConfig translates the file/environment configuration into the
// library's Config.
func buildConfig(icfg *config.Config, logger *slog.Logger) prerend.Config {
	cfg := prerend.DefaultConfig()
	cfg.AppID = icfg.AppID
	cfg.Origin.BaseOrigin = icfg.BaseOrigin
	cfg.Render.Timeout = time.Duration(icfg.Render.TimeoutMs) * time.Millisecond
	cfg.Render.Pretty = icfg.Render.Pretty
	cfg.Static.Dir = icfg.StaticPath()
	cfg.Static.Prefix = icfg.Static.Prefix
	cfg.Static.Manifest = icfg.ManifestPath()
	if icfg.Static.Cache == "production" {
		cfg.Static.CacheControl = prerend.CacheControlProduction
	}
	cfg.API.Prefix = icfg.API.Prefix
	cfg.API.Backend = icfg.API.Backend
	cfg.API.Timeout = time.Duration(icfg.API.TimeoutMs) * time.Millisecond
	cfg.Modules.Path = icfg.ModuleMapPath()
	cfg.Document = buildDocument(icfg)
	cfg.DevMode = icfg.Dev
	cfg.Logger = logger
	return cfg
}

func buildDocument(icfg *config.Config) render.DocumentData {
	doc := render.DocumentData{
		Title:       icfg.Document.Title,
		Lang:        icfg.Document.Lang,
		StyleSheets: icfg.Document.StyleSheets,
	}
	if doc.Title == "" {
		doc.Title = icfg.Name
	}
	for _, src := range icfg.Document.Scripts {
		doc.BodyScripts = append(doc.BodyScripts, render.ScriptTag{Src: src, Module: true})
	}
	return doc
}

// shellPage renders the bare application root. The client runtime
// adopts the marked element and renders the route on its own; the
// transfer state and lazy module scripts still ride along.
func shellPage(snap *render.Snapshot) (*vdom.VNode, error) {
	return vdom.Div(vdom.Props{"id": "app"}), nil
}
