// Package server exposes the research and curriculum pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/store"
)

// Config holds HTTP server settings.
type Config struct {
	Addr               string `mapstructure:"addr"`
	CorsAllowedOrigins string `mapstructure:"cors_allowed_origins"`
	BodyLimit          int    `mapstructure:"body_limit"`
}

// DefaultConfig returns sensible defaults for the HTTP server.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		CorsAllowedOrigins: "*",
		BodyLimit:          1 << 20,
	}
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Research    *research.Orchestrator
	Synthesizer *curriculum.Synthesizer
	Curricula   store.CurriculumRepo
	Logger      *zap.Logger

	// ModelID and SearchBackend are reported by the health endpoint.
	ModelID       string
	SearchBackend string
}

type Server struct {
	app    *fiber.App
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "homescholar",
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(requestLogger(logger))

	s := &Server{app: app, cfg: cfg, deps: deps, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.health)

	ai := api.Group("/ai")
	ai.Post("/research", s.research)
	ai.Post("/generate-curriculum", s.generateCurriculum)

	c := api.Group("/curricula")
	c.Get("", s.listCurricula)
	c.Post("", s.saveCurriculum)
	c.Get("/:id", s.showCurriculum)
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Handler adapts the app to net/http. Streamed bodies are buffered by the
// adaptor, so use Run for real clients.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Run listens on the configured address until Shutdown.
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"model":  s.deps.ModelID,
		"search": s.deps.SearchBackend,
	})
}
