package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"LiveAnnotate/internal/board"
	"LiveAnnotate/internal/config"
	"LiveAnnotate/internal/metrics"
	"LiveAnnotate/internal/net"
	"LiveAnnotate/internal/render"
	"LiveAnnotate/internal/state"
	"LiveAnnotate/internal/ui"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// liveannotate [config.yaml] [liveannotate://host:port]
	var configPath, link string
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, net.Scheme) {
			link = arg
		} else {
			configPath = arg
		}
	}

	cfg, errs := config.Load(configPath)
	if cfg == nil {
		fatal(logger, errs)
	}
	if link != "" {
		addr, ok := net.ParseShareLink(link)
		if !ok {
			logger.Error("invalid share link", "link", link)
			os.Exit(1)
		}
		cfg.Transport = config.TransportTCP
		cfg.HostAddress = addr
		errs = cfg.Validate()
	}
	// A missing identity is filled in once the transport is up.
	errs = without(errs, config.ErrMissingIdentity)
	if len(errs) > 0 {
		fatal(logger, errs)
	}
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to join session", "transport", cfg.Transport, "error", err)
		os.Exit(1)
	}
	defer sess.Close()
	if cfg.Identity == "" {
		cfg.Identity = sess.identity
	}

	renderer, err := render.New(render.WithLogger(logger), render.WithObserver(m.RenderObserver()))
	if err != nil {
		logger.Error("failed to load fonts", "error", err)
		os.Exit(1)
	}
	b, err := board.New(board.Options{
		Identity:   cfg.Identity,
		Privileged: cfg.Privileged,
		ViewOnly:   cfg.ViewOnly,
		Brush: board.Brush{
			Tool:     state.ToolPencil,
			Color:    cfg.Color,
			Width:    cfg.LineWidth,
			FontSize: cfg.FontSize,
		},
		Logger:   logger,
		Renderer: renderer,
	})
	if err != nil {
		logger.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	codec, err := net.CodecByName(cfg.Codec)
	if err != nil {
		logger.Error("invalid codec", "error", err)
		os.Exit(1)
	}
	adapter := net.NewAdapter(sess.channel, state.NewSiteID(),
		net.WithCodec(codec),
		net.WithLogger(logger),
		net.WithRecorder(m),
	)
	sess.sync = adapter
	adapter.OnMessage(b.HandleMessage)
	b.Attach(adapter)
	if sess.hub != nil {
		sess.hub.OnJoin(b.PublishSnapshot)
	}

	title := "LiveAnnotate"
	if cfg.ViewOnly {
		title += " (view only)"
	}
	ui.RunApp(ctx, b, ui.AppOptions{
		Title:         fmt.Sprintf("%s - %s", title, cfg.Identity),
		Status:        sess.status,
		ContentWidth:  cfg.ContentWidth,
		ContentHeight: cfg.ContentHeight,
		Fit:           state.FitMode(cfg.Fit),
		Logger:        logger,
	})
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

func without(errs []error, target error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if !errors.Is(err, target) {
			out = append(out, err)
		}
	}
	return out
}

func fatal(logger *slog.Logger, errs []error) {
	for _, err := range errs {
		logger.Error("configuration error", "error", err)
	}
	os.Exit(1)
}
