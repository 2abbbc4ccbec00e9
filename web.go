/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/quizbox/internal/game"
	"github.com/Seednode/quizbox/internal/hub"
	"github.com/Seednode/quizbox/internal/media"
	"github.com/Seednode/quizbox/internal/mirror"
	"github.com/Seednode/quizbox/internal/session"
	"github.com/Seednode/quizbox/internal/transport"
)

const (
	timeout       time.Duration = 10 * time.Second
	uploadTimeout time.Duration = 5 * time.Minute
	checkTimeout  time.Duration = 3 * time.Second
)

// checker is anything /healthz can probe.
type checker func(ctx context.Context) error

// server bundles what the HTTP handlers need.
type server struct {
	cfg    *Config
	logger *zap.Logger
	engine *game.Engine
	rooms  *hub.Hub
	media  media.Store
	checks map[string]checker
	errs   chan error
}

func (s *server) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

// baseURL is the externally visible origin plus prefix.
func (s *server) baseURL(r *http.Request) string {
	if s.cfg.publicURL != "" {
		return s.cfg.publicURL + s.cfg.prefix
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host + s.cfg.prefix
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.report(fmt.Errorf("encoding response for %s: %w", r.URL.Path, err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(s.cfg, w)
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.report(err)
	}
}

func (s *server) serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(s.cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("quizbox v" + releaseVersion + "\n"))
		if err != nil {
			s.report(err)

			return
		}

		s.logger.Debug("served version",
			zap.String("size", humanReadableSize(int64(written))),
			zap.String("remote", realIP(r)),
			zap.Duration("elapsed", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *server) serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		results := make(map[string]checkResult, len(s.checks))
		status := http.StatusOK

		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				s.logger.Error("health check failed", zap.String("name", name), zap.Error(err))
				results[name] = checkResult{Status: "error", Error: err.Error()}
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = checkResult{Status: "ok"}
		}

		s.writeJSON(w, r, status, results)
	}
}

type statsResponse struct {
	session.Stats
	Connections int `json:"connections"`
}

func (s *server) serveStats() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.writeJSON(w, r, http.StatusOK, statsResponse{
			Stats:       s.engine.Stats(),
			Connections: s.rooms.Count(),
		})
	}
}

func (s *server) serveRobots() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := `User-agent: *
Disallow: /
`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(s.cfg, w)

		if _, err := w.Write([]byte(data)); err != nil {
			s.report(err)
		}
	}
}

func (s *server) routes() *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.logger.Error("http handler panic", zap.String("path", r.URL.Path), zap.Any("panic", i))
		s.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "An error has occurred. Please try again."})
	}

	prefix := s.cfg.prefix

	mux.Handler("GET", prefix+"/ws", transport.New(s.rooms, s.engine, s.logger.Named("transport")))

	mux.GET(prefix+"/healthz", s.serveHealthCheck())
	mux.GET(prefix+"/robots.txt", s.serveRobots())
	mux.GET(prefix+"/version", s.serveVersion())

	mux.GET(prefix+"/api/stats", s.serveStats())
	mux.GET(prefix+"/api/games/:gameid/qr", s.serveQR())
	mux.POST(prefix+"/api/upload", s.serveUpload())

	if disk, ok := s.media.(*media.Disk); ok {
		mux.GET(prefix+"/uploads/*filepath", s.serveUploads(disk.Dir()))
	}

	if s.cfg.profile {
		registerProfileHandlers(s.cfg, mux)
	}

	return mux
}

func newMediaStore(ctx context.Context, cfg *Config, logger *zap.Logger) (media.Store, error) {
	if cfg.s3Bucket != "" {
		return media.NewS3(ctx, media.S3Config{
			Bucket:     cfg.s3Bucket,
			Region:     cfg.s3Region,
			PresignTTL: cfg.s3PresignTTL,
		}, logger)
	}

	return media.NewDisk(cfg.uploadDir, cfg.publicURL+cfg.prefix+"/uploads/")
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting quizbox")

	policy, err := game.PolicyByName(cfg.hostMigration)
	if err != nil {
		return err
	}

	store, err := newMediaStore(ctx, cfg, logger.Named("media"))
	if err != nil {
		return fmt.Errorf("opening media store: %w", err)
	}

	checks := map[string]checker{
		"media": store.Check,
	}

	opts := game.Options{
		Logger:      logger.Named("game"),
		HostPolicy:  policy,
		PlayerGrace: cfg.playerGrace,
	}

	if cfg.redisURL != "" {
		m, err := mirror.NewRedis(ctx, cfg.redisURL, cfg.sessionTimeout, logger.Named("mirror"))
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer m.Close()

		opts.Mirror = m
		checks["redis"] = m.Check
	}

	rooms := hub.New(logger.Named("hub"))
	engine := game.New(session.NewMemoryStore(cfg.sessionTimeout), rooms, opts)

	s := &server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		rooms:  rooms,
		media:  store,
		checks: checks,
		errs:   make(chan error, 64),
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           s.routes(),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       uploadTimeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      uploadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			zap.String("url", fmt.Sprintf("%s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)),
			zap.String("host_migration", policy.Name()),
			zap.Duration("player_grace", cfg.playerGrace),
		)

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return engine.RunSweeper(gctx, cfg.cleanupInterval)
	})

	g.Go(func() error {
		return engine.RunMirror(gctx)
	})

	g.Go(func() error {
		return logErrors(gctx, logger, s.errs)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		rooms.CloseAll()

		return err
	})

	return g.Wait()
}
