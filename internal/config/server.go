package config

import (
	analysisHandler "SiteGuard/internal/api/analysis/handler"
	analysisRepository "SiteGuard/internal/api/analysis/repository"
	analysisService "SiteGuard/internal/api/analysis/service"
	"SiteGuard/internal/middleware"
	"SiteGuard/pkg/detector"
	"SiteGuard/pkg/metrics"
	"SiteGuard/pkg/utils"
	websocketPkg "SiteGuard/pkg/websocket"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Detector backends selectable through DETECTOR_BACKEND.
const (
	BackendRemote = "remote"
	BackendONNX   = "onnx"
)

// DetectorBackend returns the normalized DETECTOR_BACKEND value.
func DetectorBackend() string {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("DETECTOR_BACKEND")))
	if backend == "" {
		return BackendRemote
	}
	return backend
}

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	metrics     metrics.IMetrics
	detector    detector.IDetector
	closeModel  func() error
	inference   websocketPkg.IInference
	resultStore analysisRepository.Repository
	analysis    analysisService.IAnalysisService
	handlers    []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.middleware == nil || server.utils == nil {
		return nil, fmt.Errorf("middleware and utils are required")
	}
	if server.metrics == nil {
		return nil, fmt.Errorf("metrics are required")
	}
	if server.resultStore == nil {
		return nil, fmt.Errorf("result store is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithMetrics(registry *prometheus.Registry) ServerOption {
	return func(s *Server) error {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return fmt.Errorf("failed to register go collector: %w", err)
		}
		m, err := metrics.New(registry)
		if err != nil {
			return err
		}
		s.metrics = m
		return nil
	}
}

// WithDetector builds the detection adapter on top of the backend named by
// DETECTOR_BACKEND. The remote backend uses inference, which may be nil for
// any other backend.
func WithDetector(inference websocketPkg.IInference) ServerOption {
	return func(s *Server) error {
		if s.log == nil || s.validator == nil {
			return fmt.Errorf("logger and validator must be initialized before detector")
		}

		cfg := detector.LoadConfig()
		if err := s.validator.Struct(cfg); err != nil {
			return fmt.Errorf("invalid detector config: %w", err)
		}
		classes := detector.NewClassTable(cfg.Classes)

		var model detector.Model
		backend := DetectorBackend()
		switch backend {
		case BackendRemote:
			if inference == nil {
				return fmt.Errorf("inference client is required for the %s backend", BackendRemote)
			}
			model = inference
			s.inference = inference
		case BackendONNX:
			local, closeFn, err := newLocalModel(s.log, classes)
			if err != nil {
				return err
			}
			model = local
			s.closeModel = closeFn
		default:
			return fmt.Errorf("unknown detector backend %q", backend)
		}

		s.log.WithFields(logrus.Fields{
			"backend":    backend,
			"threshold":  cfg.Threshold,
			"classes":    classes.Len(),
			"render_all": cfg.RenderAll,
		}).Info("Detector configured")

		s.detector = detector.New(model, cfg)
		return nil
	}
}

func WithResultStore() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before result store")
		}
		s.resultStore = analysisRepository.New(s.log)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Analysis Domain
	s.analysis = analysisService.NewAnalysisService(s.log, s.detector, s.resultStore, s.metrics)
	analysisHandlers := analysisHandler.New(s.log, s.middleware, s.analysis, s.utils)

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, analysisHandlers)
}

func (s *Server) Run() error {
	s.mount()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) mount() {
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: "labels,confidences," + middleware.RequestIDKey,
	}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

// Shutdown stops accepting requests and releases the local model if one was
// loaded. The inference client is owned by the caller.
func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()
	if s.closeModel != nil {
		if cerr := s.closeModel(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		body := fiber.Map{
			"message":         "Server is Healthy!",
			"stored_analyses": s.analysis.StoredCount(),
		}
		if s.inference != nil {
			body["inference_connected"] = s.inference.IsConnected()
		}
		return ctx.JSON(body)
	})
}

func (s *Server) setupMetrics() {
	s.engine.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}),
	))
}
