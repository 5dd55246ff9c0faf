package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sifan077/linkqr/internal/app/repository"
	"github.com/sifan077/linkqr/internal/app/service"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// ClickNotifier receives one notification per successful redirect.
type ClickNotifier interface {
	Publish(shortCode, ip, userAgent string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Clicks      ClickNotifier
	Store       Pinger
}

// RedirectHandler implements the redirect and health endpoints.
type RedirectHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	clicks      ClickNotifier
	store       Pinger
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:      logger,
		linkService: deps.LinkService,
		clicks:      deps.Clicks,
		store:       deps.Store,
	}
}

// Register wires redirect routes onto the provided router. It must run last:
// /:code matches every single-segment path.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health reports liveness and database reachability.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(requestContext(c), healthTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("health check: database unreachable", zap.Error(err))
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"service": "linkqr",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code, counting the click and redirecting to the original URL.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := utils.CopyString(c.Params("code"))

	target, err := h.linkService.ResolveLink(requestContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": notFoundMessage,
			})
		}
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if h.clicks != nil {
		// fiber recycles the context after the handler returns; copy what the goroutine needs.
		ip := utils.CopyString(c.IP())
		userAgent := utils.CopyString(c.Get(fiber.HeaderUserAgent))
		go h.publishClickEvent(code, ip, userAgent)
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", target))
	return c.Redirect(target, fiber.StatusFound)
}

func (h *RedirectHandler) publishClickEvent(code, ip, userAgent string) {
	if err := h.clicks.Publish(code, ip, userAgent); err != nil {
		h.logger.Error("failed to publish click event", zap.Error(err), zap.String("code", code))
	}
}
