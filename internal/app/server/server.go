package server

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/linkqr/internal/app/qr"
	"github.com/sifan077/linkqr/internal/app/service"
	inthttp "github.com/sifan077/linkqr/internal/http/handler"
	"github.com/sifan077/linkqr/internal/http/middleware"
	httpUtil "github.com/sifan077/linkqr/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs. Redis and Clicks are optional.
type Dependencies struct {
	Logger    *zap.Logger
	Links     service.LinkService
	Store     inthttp.Pinger
	Redis     *redis.Client
	Clicks    inthttp.ClickNotifier
	BaseURL   *httpUtil.BaseURLResolver
	StaticDir string
	RateLimit middleware.RateLimitConfig
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "linkqr",
		CaseSensitive:         true,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Test runs req through the app without a network listener.
func (s *Server) Test(req *http.Request) (*http.Response, error) {
	return s.app.Test(req, -1)
}

func (s *Server) registerRoutes() {
	log := s.deps.Logger

	s.app.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(),
	)

	s.app.Static("/"+qr.PublicPrefix, s.deps.StaticDir)

	var shortenGuard fiber.Handler
	if s.deps.Redis != nil && s.deps.RateLimit.MaxRequests > 0 {
		shortenGuard = middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, log)
	}

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:       log,
		LinkService:  s.deps.Links,
		BaseURL:      s.deps.BaseURL,
		ShortenGuard: shortenGuard,
	})
	apiHandler.Register(s.app)

	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:      log,
		LinkService: s.deps.Links,
		Clicks:      s.deps.Clicks,
		Store:       s.deps.Store,
	})
	redirectHandler.Register(s.app)
}
