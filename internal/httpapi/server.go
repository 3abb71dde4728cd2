package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jvanhook93/Kastle-script/internal/kastle/service"
	"github.com/jvanhook93/Kastle-script/internal/metrics"
)

const defaultMaxUpload = 32 << 20

type Dependencies struct {
	Logger       *zap.Logger
	Addr         string
	BatchService *service.BatchService
	Metrics      *metrics.Metrics

	// OutputDir receives a copy of every workbook served by /process.
	// Empty disables the copy.
	OutputDir      string
	MaxUploadBytes int64
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
	batch      *service.BatchService
	metrics    *metrics.Metrics
	outputDir  string
	maxUpload  int64
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	r := chi.NewRouter()
	s := &Server{
		logger:    logger,
		router:    r,
		batch:     d.BatchService,
		metrics:   d.Metrics,
		outputDir: d.OutputDir,
		maxUpload: maxUpload,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/ping", s.handlePing)
	r.Post("/process", s.handleProcess)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/runs", s.handleRuns)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
