package dev

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lalilo-dev/lalilo/internal/clock"
	"github.com/lalilo-dev/lalilo/internal/config"
	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/logger"
	"github.com/lalilo-dev/lalilo/internal/notify"
	"github.com/lalilo-dev/lalilo/internal/port"
	"github.com/lalilo-dev/lalilo/internal/queue"
	"github.com/lalilo-dev/lalilo/internal/render"
	"github.com/lalilo-dev/lalilo/internal/style"
	"github.com/lalilo-dev/lalilo/internal/telemetry"
)

// MetricsPath serves the Prometheus metrics of the dev server.
const MetricsPath = "/_lalilo/metrics"

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// Clock drives the debounce and reload timers. Defaults to the real
	// clock.
	Clock clock.Clock

	// Compiler overrides the sass executable.
	Compiler style.Compiler

	// Renderer overrides the template command.
	Renderer render.Renderer

	// Notifier overrides desktop notifications.
	Notifier notify.Notifier

	// Checker overrides the port probe.
	Checker port.Checker

	// OpenBrowser opens the server URL once it is listening.
	OpenBrowser bool

	// OnReady is called with the server URL once it is listening.
	OnReady func(url string)
}

// Server is the development server.
type Server struct {
	config  *config.Config
	options ServerOptions
	log     *slog.Logger
	metrics *telemetry.Metrics

	toolchain    *Toolchain
	builds       *queue.Serializer
	loaderQueue  *queue.Serializer
	scheduler    *Scheduler
	aggregator   *Aggregator
	dispatcher   *Dispatcher
	watcher      *Watcher
	reloadServer *ReloadServer
	handler      *Handler

	mu         sync.Mutex
	running    bool
	httpServer *http.Server
	url        string
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) *Server {
	cfg := options.Config
	log := options.Logger
	if log == nil {
		log = logger.Discard()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	metrics := options.Metrics

	notifier := options.Notifier
	if notifier == nil {
		if cfg.Notify.Enabled {
			notifier = notify.NewDesktop(log)
		} else {
			notifier = notify.Nop{}
		}
	}

	renderer := options.Renderer
	if renderer == nil {
		renderer = &render.Command{
			Interpreter: cfg.Template.Command,
			Script:      cfg.TemplateEntryPath(),
			MaxBuffer:   cfg.Template.MaxBuffer,
		}
	}

	toolchain := NewToolchain(cfg, options.Compiler, log)
	builds := queue.New("build", queue.WithLogger(log), queue.WithMetrics(metrics))
	loaderQueue := queue.New("loader", queue.WithLogger(log), queue.WithMetrics(metrics))
	toolchain.Loaders.Queue = loaderQueue

	reloadServer := NewReloadServer(log, metrics)
	scheduler := NewScheduler(clk, cfg.Watch.Debounce.Std())
	aggregator := NewAggregator(clk, cfg.Watch.ReloadDelay.Std(), cfg.Watch.ReloadMaxWait.Std(), reloadServer.NotifyReload)

	dispatcher := &Dispatcher{
		Root:        cfg.Dir(),
		Classifier:  NewClassifier(cfg),
		Scheduler:   scheduler,
		Builds:      builds,
		Icons:       toolchain.Icons,
		Styles:      toolchain.Styles,
		Aggregator:  aggregator,
		Loaders:     toolchain.Loaders,
		Notifier:    notifier,
		NotifyTitle: cfg.Notify.Title,
		Logger:      log,
		Metrics:     metrics,
	}

	handler := &Handler{
		Resolver: NewResolver(cfg),
		Renderer: renderer,
		Template: render.Request{
			Root:      cfg.EntryPath(),
			ConfigDir: cfg.TemplateConfigPath(),
			Env:       cfg.Template.Env,
			BaseURL:   cfg.Template.BaseURL,
		},
		Logger:  log,
		Metrics: metrics,
	}

	return &Server{
		config:       cfg,
		options:      options,
		log:          log,
		metrics:      metrics,
		toolchain:    toolchain,
		builds:       builds,
		loaderQueue:  loaderQueue,
		scheduler:    scheduler,
		aggregator:   aggregator,
		dispatcher:   dispatcher,
		watcher:      NewWatcher(cfg.EntryPath(), nil, log),
		reloadServer: reloadServer,
		handler:      handler,
	}
}

// Start runs the initial build, starts watching, allocates a port and
// serves until ctx is done. Configuration, port and initial build errors
// are returned before anything is served.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	start := time.Now()

	if err := s.toolchain.InitialBuild(ctx); err != nil {
		s.Stop()
		return err
	}

	s.watcher.OnChange(func(ev ChangeEvent) {
		s.dispatcher.Dispatch(ev)
	})
	if err := s.watcher.Start(ctx); err != nil {
		s.Stop()
		return err
	}

	ln, scheme, err := s.listen()
	if err != nil {
		s.Stop()
		return err
	}

	addr := ln.Addr().(*net.TCPAddr)
	url := scheme + "://" + net.JoinHostPort(s.config.Server.Domain, strconv.Itoa(addr.Port)) + "/"
	if s.handler.Template.BaseURL == "" {
		s.handler.Template.BaseURL = url
	}
	s.handler.Template.BaseURL = config.NormalizeBaseURL(s.handler.Template.BaseURL)

	s.mu.Lock()
	s.url = url
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	s.log.Info("server running", "url", url, "took", time.Since(start))
	if s.options.OnReady != nil {
		s.options.OnReady(url)
	}
	if s.options.OpenBrowser || s.config.AutoOpenBrowser {
		if err := OpenURL(url); err != nil {
			s.log.Warn("cannot open browser", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil {
			return errors.New("E201").WithDetail(url).Wrap(err)
		}
		return nil
	}
}

// Router returns the HTTP routes of the dev server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(ReloadPath, s.reloadServer.HandleWebSocket)
	r.Handle(MetricsPath, s.metrics.Handler())
	r.Handle("/*", s.handler)
	return r
}

// listen allocates a port and opens the listener. TLS is used when both
// certificate files load; otherwise the server falls back to plain HTTP.
func (s *Server) listen() (net.Listener, string, error) {
	cfg := s.config
	check := s.options.Checker
	if check == nil {
		check = port.Listener(cfg.Server.Domain)
	}

	p, err := port.Allocate(check, cfg.Server.Port.Default, cfg.Server.Port.Min, cfg.Server.Port.Max)
	if err != nil {
		return nil, "", err
	}
	if p != cfg.Server.Port.Default {
		s.log.Info("default port busy", "default", cfg.Server.Port.Default, "port", p)
	}

	addr := net.JoinHostPort(cfg.Server.Domain, strconv.Itoa(p))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", errors.New("E201").WithDetail(addr).Wrap(err)
	}

	if !cfg.HasSSL() {
		return ln, "http", nil
	}
	keyFile, certFile := cfg.SSLPaths()
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		s.log.Warn("https unavailable, serving http", "error", err)
		return ln, "http", nil
	}
	return tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), "https", nil
}

// Stop stops the development server. Pending debounced work is dropped.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	s.watcher.Stop()
	s.scheduler.Stop()
	s.aggregator.Stop()
	s.builds.Close()
	s.loaderQueue.Close()
	s.reloadServer.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// URL returns the server URL once it is listening.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}
