// Package api exposes the guest authorization console over HTTP: the
// JSON API the single-page UI talks to, the embedded UI itself, and
// the operational endpoints (health, readiness, metrics, logs).
package api

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mistops/guestgate/internal/brand"
	"github.com/mistops/guestgate/internal/clock"
	"github.com/mistops/guestgate/internal/config"
	"github.com/mistops/guestgate/internal/guest"
	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/metrics"
)

func init() {
	// Ensure MIME types are registered, as minimal environments might lack /etc/mime.types
	mime.AddExtensionType(".js", "application/javascript")
	mime.AddExtensionType(".css", "text/css")
	mime.AddExtensionType(".html", "text/html")
	mime.AddExtensionType(".json", "application/json")
	mime.AddExtensionType(".svg", "image/svg+xml")
	mime.AddExtensionType(".png", "image/png")
}

// GuestService is the guest workflow surface the handlers call. Tests
// substitute a stub.
type GuestService interface {
	TestConnection(ctx context.Context) (*guest.ConnectionInfo, error)
	Sites(ctx context.Context, filterGuestWLANs bool) ([]guest.SiteInfo, error)
	GuestWLANs(ctx context.Context, siteID string) ([]guest.WLANInfo, error)
	Guests(ctx context.Context, siteID, wlanID string) ([]guest.Guest, error)
	Authorize(ctx context.Context, siteID, wlanID string, req guest.AuthorizeRequest) (*guest.Guest, error)
	Update(ctx context.Context, siteID, wlanID, mac string, req guest.UpdateRequest) (*guest.Guest, error)
	Revoke(ctx context.Context, siteID, wlanID, mac string) error
	SearchClients(ctx context.Context, siteID, query string) ([]guest.ClientInfo, error)
	SiteWLANMap(ctx context.Context) (map[string]guest.SiteWLANEntry, error)
}

// ServerConfig holds HTTP server hardening configuration.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
}

// DefaultServerConfig returns the default server hardening settings.
// The write timeout leaves headroom for the sites-wlans-map endpoint,
// which fans out to the vendor cloud per site.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
		MaxBodyBytes:      1 << 20, // 1MB; guest payloads are tiny
	}
}

// Server handles API requests.
type Server struct {
	Config    *config.Config
	Assets    fs.FS
	svc       GuestService
	logger    *logging.Logger
	startTime time.Time
	mux       *http.ServeMux
}

// ServerOptions holds dependencies for the API server.
type ServerOptions struct {
	Config  *config.Config
	Assets  fs.FS
	Service GuestService
	Logger  *logging.Logger
}

// NewServer creates the API server with the provided options.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("guest service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}

	s := &Server{
		Config:    opts.Config,
		Assets:    opts.Assets,
		svc:       opts.Service,
		logger:    logger.WithComponent("api"),
		startTime: clock.Now(),
	}
	s.initRoutes()
	return s, nil
}

// initRoutes initializes the HTTP router.
func (s *Server) initRoutes() {
	mux := http.NewServeMux()
	s.mux = mux

	// Connection & discovery
	mux.HandleFunc("POST /api/test-connection", s.handleTestConnection)
	mux.HandleFunc("GET /api/sites", s.handleSites)
	mux.HandleFunc("GET /api/sites/{site_id}/wlans", s.handleSiteWLANs)

	// Guest authorizations
	mux.HandleFunc("GET /api/sites/{site_id}/wlans/{wlan_id}/guests", s.handleListGuests)
	mux.HandleFunc("POST /api/sites/{site_id}/wlans/{wlan_id}/guests", s.handleAuthorizeGuest)
	mux.HandleFunc("PUT /api/sites/{site_id}/wlans/{wlan_id}/guests/{mac}", s.handleUpdateGuest)
	mux.HandleFunc("DELETE /api/sites/{site_id}/wlans/{wlan_id}/guests/{mac}", s.handleRevokeGuest)

	// Connected-client search (pre-fill for the authorize form)
	mux.HandleFunc("GET /api/sites/{site_id}/clients/search", s.handleSearchClients)

	// Bulk import
	mux.HandleFunc("GET /api/csv-template", s.handleCSVTemplate)
	mux.HandleFunc("GET /api/sites-wlans-map", s.handleSiteWLANMap)
	mux.HandleFunc("POST /api/bulk-import", s.handleBulkImport)

	// Branding (public)
	mux.HandleFunc("GET /api/brand", s.handleBrand)

	// Logging endpoints
	mux.HandleFunc("GET /api/logs", s.handleLogs)

	// Health check endpoints (public - for monitoring)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReadiness)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Serve SPA static files with fallback to index.html
	if s.Assets != nil {
		mux.Handle("/", s.spaHandler(s.Assets, "index.html"))
	}
}

// spaHandler serves static files, falling back to index.html for
// client-side routing. fs.FS confines lookups to the embedded assets,
// so traversal sequences cannot escape.
func (s *Server) spaHandler(assets fs.FS, fallback string) http.Handler {
	fileServer := http.FileServer(http.FS(assets))

	indexContent, err := fs.ReadFile(assets, fallback)
	if err != nil {
		s.logger.Error("failed to read SPA fallback file", "file", fallback, "error", err)
		indexContent = []byte("UI assets missing")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		f, err := assets.Open(path)
		if err == nil {
			stat, _ := f.Stat()
			isDir := stat.IsDir()
			f.Close()

			if !isDir {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		// Missing static assets get a real 404 so the browser never
		// parses HTML as JS.
		if strings.HasPrefix(path, "assets/") || strings.HasPrefix(path, "static/") {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", time.Now(), bytes.NewReader(indexContent))
	})
}

// Handler returns the HTTP handler with the middleware chain applied:
// AccessLog -> BearerAuth -> MaxBody -> Mux.
func (s *Server) Handler() http.Handler {
	cfg := DefaultServerConfig()
	var token string
	if s.Config != nil && s.Config.API != nil {
		token = s.Config.API.AuthToken
	}
	return AccessLogger(BearerAuth(token, s.maxBodyMiddleware(cfg.MaxBodyBytes)(s.mux)))
}

// maxBodyMiddleware limits the size of request bodies to prevent
// memory exhaustion.
func (s *Server) maxBodyMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				WriteError(w, http.StatusRequestEntityTooLarge, "Request entity too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, brand.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": clock.Now().UTC().Format(time.RFC3339),
	})
}

// handleReadiness checks the vendor cloud is actually reachable with
// the configured token, unlike the liveness probe.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.svc.TestConnection(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Start starts the HTTP server, with TLS when certificates are
// configured. With TLS enabled the server binds tls_listen when set,
// and the plain listener on addr then only redirects to HTTPS; with
// tls_listen unset, TLS binds addr directly and no redirect listener
// runs.
func (s *Server) Start(addr string) error {
	cfg := DefaultServerConfig()
	metrics.Get().Uptime.Set(0)
	go s.trackUptime()

	tlsEnabled := s.Config != nil && s.Config.API != nil &&
		s.Config.API.TLSCert != "" && s.Config.API.TLSKey != ""

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	if tlsEnabled {
		if s.Config.API.TLSListen != "" {
			server.Addr = s.Config.API.TLSListen
			go s.startHTTPRedirectServer(addr, s.Config.API.TLSListen)
		}
		logging.APILog("info", "API server starting with TLS on %s", server.Addr)
		return server.ListenAndServeTLS(s.Config.API.TLSCert, s.Config.API.TLSKey)
	}

	logging.APILog("info", "API server starting on %s (no TLS)", addr)
	return server.ListenAndServe()
}

// startHTTPRedirectServer serves plain HTTP on httpAddr and redirects
// every request to the TLS listener.
func (s *Server) startHTTPRedirectServer(httpAddr, tlsAddr string) {
	redirectServer := &http.Server{
		Addr:              httpAddr,
		Handler:           httpsRedirectHandler(tlsAddr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.APILog("info", "HTTP redirect server starting on %s -> HTTPS", httpAddr)
	if err := redirectServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.APILog("error", "HTTP redirect server error: %v", err)
	}
}

// httpsRedirectHandler issues permanent redirects to the HTTPS port of
// tlsAddr, preserving the request host and URI.
func httpsRedirectHandler(tlsAddr string) http.Handler {
	_, tlsPort, err := net.SplitHostPort(tlsAddr)
	if err != nil {
		tlsPort = "443"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host
		if tlsPort != "443" {
			target += ":" + tlsPort
		}
		target += r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

func (s *Server) trackUptime() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		metrics.Get().Uptime.Set(time.Since(s.startTime).Seconds())
	}
}
