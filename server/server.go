// Package server exposes conversion over HTTP. Every request is converted
// independently, documents received over network never reach local files.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"hdx/config"
	"hdx/content"
	"hdx/convert"
	"hdx/state"
	"hdx/table"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	// WarningsHeader carries number of conversion warnings.
	WarningsHeader  = "X-Conversion-Warnings"
	shutdownTimeout = 10 * time.Second
)

// Server converts documents posted to it.
type Server struct {
	cfg       *config.Config
	userStyle []byte
	log       *zap.Logger
	router    chi.Router
}

// New creates server. Configuration is shared by all requests and never
// modified, userStyle is applied to every converted document.
func New(cfg *config.Config, userStyle []byte, log *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		userStyle: userStyle,
		log:       log.Named("server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.With(middleware.RequestSize(cfg.Server.MaxBody)).Post("/convert", s.convert)

	s.router = r
	return s
}

// Handler returns request router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves requests on configured address until context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", s.cfg.Server.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until context is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ErrorLog:          zap.NewStdLog(s.log),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Listening", zap.String("address", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shutdown server: %w", err)
	}
	s.log.Info("Server stopped")
	return nil
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	cfg := *s.cfg
	for param, toggle := range map[string]*bool{
		"images": &cfg.Document.Images,
		"tables": &cfg.Document.Tables,
		"styles": &cfg.Document.Styles,
	} {
		v := r.URL.Query().Get(param)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad value of %q: %q", param, v), http.StatusBadRequest)
			return
		}
		*toggle = b
	}

	// request gets its own environment, there is nothing to share between
	// conversions
	ctx := state.ContextWithEnv(r.Context())
	env := state.EnvFromContext(ctx)
	env.Cfg = &cfg
	env.Log = log
	env.UserStyle = s.userStyle
	env.NoLocalFiles = true

	name := sourceName(r.Header.Get("Content-Type"))
	c, doc, res, err := convert.Document(ctx, r.Body, name, nil, log)
	if err != nil {
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			log.Error("Conversion failed", zap.Error(err))
		} else {
			log.Warn("Conversion rejected", zap.Int("status", code), zap.Error(err))
		}
		http.Error(w, err.Error(), code)
		return
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		log.Error("Unable to write document", zap.Error(err))
		http.Error(w, "unable to write document", http.StatusInternalServerError)
		return
	}

	fileName := "document"
	if c.Title != "" {
		if sl := slug.Make(c.Title); sl != "" {
			fileName = sl
		}
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName + ".docx"}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(WarningsHeader, strconv.Itoa(len(res.Warnings)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Debug("Unable to send response", zap.Error(err))
	}
}

// sourceName selects loader by content type of the request.
func sourceName(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "request.html"
	}
	switch strings.ToLower(mt) {
	case "text/markdown", "text/x-markdown":
		return "request.md"
	}
	return "request.html"
}

func errorStatus(err error) int {
	var (
		tooLarge *http.MaxBytesError
		conflict *table.ConflictError
		grid     *table.SizeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &conflict), errors.As(err, &grid), errors.Is(err, content.ErrUnsupportedInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// logRequests writes one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("Request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}
