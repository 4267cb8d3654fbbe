// Package http serves the entry page: it renders the view with the embedded
// templates and turns form posts into view operations.
package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"emoledger/internal/log"
	"emoledger/internal/middleware/ratelimit"
	"emoledger/internal/middleware/security"
	"emoledger/internal/middleware/trace"
	"emoledger/internal/view"
	appweb "emoledger/web"
)

// Server is the web front end of the ledger.
type Server struct {
	http.Server
	templates *template.Template
	view      *view.View
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	logger    *log.Logger
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, v *view.View, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		view:      v,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:    trace.NewMiddleware(logger, extractClientIP),
		logger:    logger.WithComponent(log.ComponentHTTP),
		startedAt: time.Now(),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.CacheStatic(time.Hour, static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /emotion", s.handleSelectEmotion)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	limited := s.limiter.Middleware(extractClientIP, nil)(mux)

	s.Handler = s.tracer.Middleware(security.Headers(security.PagePolicy(), limited))
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes the index template into a buffer so a template error can
// still become a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page view.Page) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
