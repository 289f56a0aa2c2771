// Package server exposes the heat-map service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/contribgraph/pkg/cache"
	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/events"
	"github.com/charlie0129/contribgraph/pkg/heatmap"
)

const (
	// UnixPrefix marks a listen address as a unix socket path.
	UnixPrefix = "unix:"

	shutdownTimeout = 5 * time.Second
)

// ServiceFactory builds the heat-map service for a configuration. opts carry
// the graph cache shared across reloads and the event hub, and must be passed
// on to the service.
type ServiceFactory func(conf config.Config, opts ...heatmap.Option) (*heatmap.Service, error)

type Server struct {
	conf       config.Config
	palette    contrib.PaletteFunc
	newService ServiceFactory
	graphs     *cache.Cache[*heatmap.Graph]
	janitor    *cache.Janitor
	hub        *events.EventHub

	// streams is canceled on shutdown to end open event streams.
	streams     context.Context
	stopStreams context.CancelFunc

	mu     sync.RWMutex
	svc    *heatmap.Service
	router *gin.Engine
}

var _ http.Handler = &Server{}

type Option func(*Server)

// WithServiceFactory replaces heatmap.NewFromConfig.
func WithServiceFactory(f ServiceFactory) Option {
	return func(s *Server) {
		if f != nil {
			s.newService = f
		}
	}
}

// New returns a Server for conf. A config that fails validation is only
// logged: affected requests report the problem themselves.
func New(conf config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		conf:       conf,
		palette:    contrib.PaletteFor,
		newService: heatmap.NewFromConfig,
		graphs:     cache.New[*heatmap.Graph](),
		hub:        events.NewEventHub(),
	}
	for _, o := range opts {
		o(s)
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	s.janitor = cache.NewJanitor(&publishingPurger{graphs: s.graphs, hub: s.hub})

	if err := s.apply(conf); err != nil {
		return nil, err
	}
	return s, nil
}

// apply rebuilds everything derived from conf and makes conf current. On
// error nothing is replaced.
func (s *Server) apply(conf config.Config) error {
	if err := conf.Validate(); err != nil {
		logrus.WithError(err).Warn("config is not fully usable")
	}

	svc, err := s.newService(conf, heatmap.WithCache(s.graphs), heatmap.WithEvents(s.hub))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create heat-map service")
	}
	if err := s.janitor.Schedule(conf.JanitorSchedule()); err != nil {
		return pkgerrors.Wrapf(err, "invalid janitor schedule %q", conf.JanitorSchedule())
	}
	router := s.setupRoutes(conf)

	s.mu.Lock()
	s.conf = conf
	s.svc = svc
	s.router = router
	s.mu.Unlock()
	return nil
}

func (s *Server) setupRoutes(conf config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.Use(corsMiddleware(conf.AllowedOrigins()))

	router.GET("/healthz", s.getHealthz)
	router.GET("/version", s.getVersion)
	router.GET("/config", s.getConfig)

	v1 := router.Group("/api/v1")
	v1.GET("/themes", s.getThemes)
	v1.GET("/users/:username/contributions", s.getContributions)
	v1.GET("/users/:username/months", s.getMonths)
	v1.GET("/events", s.getEvents)

	return router
}

// Events returns the hub that feeds /api/v1/events.
func (s *Server) Events() *events.EventHub {
	return s.hub
}

// currentConfig returns the config the running service was built from.
func (s *Server) currentConfig() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf
}

func (s *Server) service() *heatmap.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.svc
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()
	router.ServeHTTP(w, r)
}

// Reload re-reads the config, applies overrides to it, rebuilds the service,
// and drops every cached graph. On error the previous config and service stay
// in place.
func (s *Server) Reload(overrides ...func(config.Config)) error {
	next, err := s.currentConfig().Reread()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to reload config")
	}
	for _, o := range overrides {
		o(next)
	}
	if err := s.apply(next); err != nil {
		return err
	}
	dropped := s.graphs.Len()
	s.graphs.Flush()
	logrus.WithFields(next.LogrusFields()).Info("config reloaded")

	now := time.Now().Unix()
	s.hub.Publish(events.CacheFlushed, events.CacheFlushedEvent{
		Reason:  "reload",
		Dropped: dropped,
		Ts:      now,
	})
	s.hub.Publish(events.ConfigReloaded, events.ConfigReloadedEvent{
		Source:       next.Source(),
		DefaultTheme: string(next.DefaultTheme()),
		Ts:           now,
	})
	return nil
}

// publishingPurger reports every janitor run that dropped graphs.
type publishingPurger struct {
	graphs *cache.Cache[*heatmap.Graph]
	hub    *events.EventHub
}

func (p *publishingPurger) Purge() int {
	n := p.graphs.Purge()
	if n > 0 {
		p.hub.Publish(events.CacheFlushed, events.CacheFlushedEvent{
			Reason:  "expired",
			Dropped: n,
			Ts:      time.Now().Unix(),
		})
	}
	return n
}

// Listen opens a TCP listener for host:port, or a unix socket for
// unix:<path>. A stale socket file is removed first.
func Listen(addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, UnixPrefix); ok {
		if fi, err := os.Stat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
			if err := os.Remove(path); err != nil {
				return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", path)
			}
		}
		l, err := net.Listen("unix", path)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to listen on %s", path)
		}
		return l, nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}
	return l, nil
}

// Serve handles requests on l until ctx is done, then shuts down gracefully.
// The cache janitor runs for as long as Serve does.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.stopStreams)

	s.janitor.Start()
	defer s.janitor.Stop()

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
		return err
	}
	return nil
}

// Run loads the config at configPath and serves until SIGINT or SIGTERM.
// SIGHUP reloads the config. A non-empty listen overrides the configured
// address.
func Run(configPath string, listen string) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	if listen != "" {
		conf.SetListen(listen)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	s, err := New(conf)
	if err != nil {
		return err
	}

	l, err := Listen(conf.Listen())
	if err != nil {
		return err
	}

	// Receive SIGHUP to reload config
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			err := s.Reload(func(c config.Config) {
				if listen != "" {
					c.SetListen(listen)
				}
			})
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
			}
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = s.Serve(ctx, l)
	logrus.Info("exiting")
	return err
}
