// Package web hosts the browser-facing prep service and its JSON APIs.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
	webapp "github.com/prestigeprep/prep/internal/services/web/app"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/modules"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/observability"
	"github.com/prestigeprep/prep/internal/services/web/platform/pagerender"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	webstatic "github.com/prestigeprep/prep/internal/services/web/static"
)

// Config defines startup inputs for the web service.
type Config struct {
	HTTPAddr     string
	Dependencies module.Dependencies
}

// Server hosts the web HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	logger     *zap.Logger
}

// NewHandler builds the root handler from the module registry groups.
func NewHandler(cfg Config) (http.Handler, error) {
	deps := cfg.Dependencies
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if deps.Content == nil {
		return nil, errors.New("content service is required")
	}
	if deps.Practice == nil {
		return nil, errors.New("practice service is required")
	}
	deps.Logger = logging.OrNop(deps.Logger)
	if !deps.RequestSchemePolicy.TrustForwardedProto {
		deps.RequestSchemePolicy = deps.Sessions.Policy()
	}

	pages := pagerender.New(deps.Access, deps.Logger)
	h, err := webapp.Compose(webapp.ComposeInput{
		PublicModules:       modules.PublicModules(deps),
		ProtectedModules:    modules.ProtectedModules(deps),
		AdminModules:        modules.AdminModules(deps),
		APIModules:          modules.APIModules(deps),
		Access:              deps.Access,
		RequestSchemePolicy: deps.RequestSchemePolicy,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pages.WriteError(w, r, http.StatusNotFound, "Page not found.")
		}),
	})
	if err != nil {
		return nil, err
	}

	rootMux := http.NewServeMux()
	rootMux.Handle(routepath.Static, http.StripPrefix(routepath.Static, http.FileServer(http.FS(webstatic.FS))))
	rootMux.HandleFunc(http.MethodGet+" "+routepath.Up, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	rootMux.Handle("/", h)

	handler := httpx.Chain(rootMux,
		httpx.RecoverPanic(deps.Logger),
		httpx.RequestID(),
		observability.RequestLogger(deps.Logger),
		deps.Sessions.Middleware(),
	)
	return otelhttp.NewHandler(handler, "web",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}

// NewServer validates config and constructs a web server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose web handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		logger: logging.OrNop(cfg.Dependencies.Logger),
	}, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.httpAddr
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("web listening", zap.String("addr", s.httpAddr))
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown web http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve web http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
