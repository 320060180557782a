// Package gateway is the single HTTP entry point in front of the demo
// application: it classifies every inbound request by path and either
// proxies it to the TTS backend or serves the built application bundle,
// with an app-shell fallback for client-side routes.
package gateway

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/mkadlec/voicebox/internal/config"
	"github.com/mkadlec/voicebox/internal/observability"
)

const appShell = "index.html"

// Server multiplexes proxying and static serving.
type Server struct {
	cfg     config.Config
	origin  *url.URL
	proxy   *httputil.ReverseProxy
	assets  fs.FS
	static  http.Handler
	metrics *observability.Metrics
	logger  *log.Logger
}

// New builds a gateway for the configured backend origin and asset
// directory. The asset directory may be absent at startup; requests
// then fall through to the app shell (and 404 if that is missing too).
func New(cfg config.Config, metrics *observability.Metrics, logger *log.Logger) (*Server, error) {
	origin, err := url.Parse(cfg.BackendOrigin)
	if err != nil {
		return nil, fmt.Errorf("parse backend origin: %w", err)
	}

	assets := os.DirFS(cfg.StaticDir)
	s := &Server{
		cfg:     cfg,
		origin:  origin,
		assets:  assets,
		static:  http.FileServerFS(assets),
		metrics: metrics,
		logger:  logger,
	}
	s.proxy = s.newProxy()
	return s, nil
}

// Router returns the gateway's HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	// Gateway-local ops endpoints. The proxied backend /health is
	// classified like any other API path and never lands here.
	r.Get("/gatewayz", s.handleGatewayHealth)
	r.Handle("/metrics", observability.MetricsHandler())
	r.Handle("/*", http.HandlerFunc(s.handle))
	return r
}

// handle applies the classification rule to every request. Path and
// query string reach the backend verbatim; no transformation occurs.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	class := Classify(r.URL.Path, s.assetExists)
	s.metrics.GatewayRequests.WithLabelValues(string(class)).Inc()
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "class", class)

	switch class {
	case RouteBackend:
		s.metrics.ProxyInFlight.Inc()
		defer s.metrics.ProxyInFlight.Dec()
		s.proxy.ServeHTTP(w, r)
	case RouteStatic:
		s.static.ServeHTTP(w, r)
	default:
		s.serveAppShell(w, r)
	}
}

func (s *Server) handleGatewayHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"backend": s.origin.String(),
	})
}

// newProxy forwards method, headers and body unmodified, rewriting only
// the target origin and Host header, and streams the response back with
// its status intact. Upstream failure is the upstream's problem: no
// retries, the gateway itself stays up.
func (s *Server) newProxy() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(s.origin)
			pr.Out.Host = s.origin.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.metrics.UpstreamErrors.Inc()
			s.logger.Warn("upstream unavailable", "path", r.URL.Path, "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "upstream unavailable",
				"code":  "upstream_unavailable",
			})
		},
	}
}

// assetExists reports whether the path resolves to a regular file in
// the built bundle.
func (s *Server) assetExists(reqPath string) bool {
	name := strings.TrimPrefix(path.Clean(reqPath), "/")
	if name == "" || name == "." {
		return false
	}
	info, err := fs.Stat(s.assets, name)
	return err == nil && info.Mode().IsRegular()
}

func (s *Server) serveAppShell(w http.ResponseWriter, r *http.Request) {
	if _, err := fs.Stat(s.assets, appShell); err != nil {
		s.logger.Error("app shell missing", "dir", s.cfg.StaticDir, "err", err)
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, s.assets, appShell)
}
