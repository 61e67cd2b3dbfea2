package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/metrics"
)

// Service is the part of the analysis service exposed over HTTP
type Service interface {
	AnalyzeEmail(ctx context.Context, input core.EmailInput) core.EmailResult
	AnalyzePDF(ctx context.Context, raw []byte) core.PdfResult
	AnalyzeURL(ctx context.Context, rawURL string) core.URLResult
	AnalyzeURLBatch(ctx context.Context, urls []string) core.BatchResult
	AnalyzeMessage(ctx context.Context, msg *core.Message) core.MessageResult
	Verdict(ctx context.Context, id string) (*core.Verdict, error)
}

// Options configures the HTTP listener
type Options struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBytes int64
	AnalysisTimeout time.Duration
	Version         string
}

// Server is the JSON API in front of the analysis service
type Server struct {
	service Service
	metrics *metrics.Recorder
	logger  *zap.Logger
	opts    Options
	srv     *http.Server
}

// NewServer creates a new HTTP API server. metrics may be nil.
func NewServer(service Service, recorder *metrics.Recorder, logger *zap.Logger, opts Options) *Server {
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 30 * 1024 * 1024
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 10 * time.Second
	}
	return &Server{
		service: service,
		metrics: recorder,
		logger:  logger,
		opts:    opts,
	}
}

type pdfRequest struct {
	PDFBase64 string `json:"pdf_base64"`
	Filename  string `json:"filename"`
}

type pdfResponse struct {
	Filename string `json:"filename,omitempty"`
	core.PdfResult
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.AnalysisTimeout))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/email/analyze", s.handleEmail)
		r.Post("/pdf/analyze", s.handlePDF)
		r.Post("/pdf/upload", s.handlePDFUpload)
		r.Post("/url/analyze", s.handleURL)
		r.Post("/url/batch", s.handleURLBatch)
		r.Post("/message/analyze", s.handleMessage)
		r.Get("/verdicts/{id}", s.handleVerdict)
	})
	return r
}

// Start starts the HTTP listener
func (s *Server) Start() error {
	s.srv = &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddr, err)
	}

	s.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests and stops the listener
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// observe logs each request and counts it by route pattern and status
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(endpoint, strconv.Itoa(status))
		}
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.opts.Version})
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var in core.EmailInput
	if !s.decode(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.AnalyzeEmail(r.Context(), in))
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	var req pdfRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PDFBase64 == "" {
		writeError(w, http.StatusBadRequest, "pdf_base64 is required")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.PDFBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pdf_base64 is not valid base64")
		return
	}
	writeJSON(w, http.StatusOK, pdfResponse{
		Filename:  req.Filename,
		PdfResult: s.service.AnalyzePDF(r.Context(), raw),
	})
}

func (s *Server) handlePDFUpload(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pdfResponse{
		Filename:  r.URL.Query().Get("filename"),
		PdfResult: s.service.AnalyzePDF(r.Context(), raw),
	})
}

func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	var in core.URLInput
	if !s.decode(w, r, &in) {
		return
	}
	if in.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	writeJSON(w, http.StatusOK, s.service.AnalyzeURL(r.Context(), in.URL))
}

func (s *Server) handleURLBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.AnalyzeURLBatch(r.Context(), req.URLs))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	msg, err := filter.ParseMessage(raw)
	if err != nil {
		s.logger.Warn("Rejected malformed message", zap.Error(err))
		writeError(w, http.StatusBadRequest, "message could not be parsed")
		return
	}
	writeJSON(w, http.StatusOK, s.service.AnalyzeMessage(r.Context(), msg))
}

func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.Verdict(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case errors.Is(err, core.ErrVerdictNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrNoStore):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		s.logger.Error("Verdict lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "verdict lookup failed")
	}
}

// decode reads a JSON body into dst, answering 400 or 413 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return nil, false
	}
	return raw, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
