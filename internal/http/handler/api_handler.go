package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/linkqr/internal/app/repository"
	"github.com/sifan077/linkqr/internal/app/service"
	httpUtil "github.com/sifan077/linkqr/internal/http/util"
	"go.uber.org/zap"
)

const (
	analyticsTimeLayout = "2006-01-02 15:04:05"
	neverClicked        = "Never clicked"
	notFoundMessage     = "Short URL not found"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	BaseURL     *httpUtil.BaseURLResolver
	// ShortenGuard, when set, runs before the create handler (rate limiting).
	ShortenGuard fiber.Handler
}

// APIHandler implements the create and analytics endpoints.
type APIHandler struct {
	logger       *zap.Logger
	linkService  service.LinkService
	baseURL      *httpUtil.BaseURLResolver
	shortenGuard fiber.Handler
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:       logger,
		linkService:  deps.LinkService,
		baseURL:      deps.BaseURL,
		shortenGuard: deps.ShortenGuard,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	if h.shortenGuard != nil {
		router.Post("/shorten", h.shortenGuard, h.CreateLink)
	} else {
		router.Post("/shorten", h.CreateLink)
	}
	router.Get("/analytics/:code", h.GetAnalytics)
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL        string `json:"url"`
	CustomCode string `json:"custom_code,omitempty"`
}

// CreateLinkResponse represents the response for creating a link.
type CreateLinkResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	QRCode      string `json:"qr_code"`
}

// AnalyticsResponse reports usage of one short link.
type AnalyticsResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"created_at"`
	LastClicked string `json:"last_clicked"`
}

// CreateLink handles POST /shorten
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	res, err := h.linkService.CreateLink(requestContext(c), service.CreateLinkInput{
		URL:        req.URL,
		CustomCode: req.CustomCode,
		BaseURL:    h.baseURL.Resolve(c),
	})
	if err != nil {
		if msg, ok := createErrorMessage(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": msg,
			})
		}
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create short URL",
		})
	}

	h.logger.Info("short link created",
		zap.String("code", res.Link.ShortCode),
		zap.Bool("custom", req.CustomCode != ""),
	)

	return c.JSON(CreateLinkResponse{
		OriginalURL: res.Link.OriginalURL,
		ShortURL:    res.ShortURL,
		QRCode:      res.QRCodeURL,
	})
}

func createErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrMissingURL):
		return "URL is required", true
	case errors.Is(err, service.ErrInvalidURLFormat):
		return "Invalid URL format. URL must start with http:// or https://", true
	case errors.Is(err, service.ErrInvalidCodeFormat):
		return "Custom short code must be alphanumeric (A-Z, a-z, 0-9) with no spaces, at most 10 characters", true
	case errors.Is(err, service.ErrCodeReserved):
		return "Custom short code is reserved", true
	case errors.Is(err, service.ErrCodeTaken):
		return "Custom short code is already taken", true
	default:
		return "", false
	}
}

// GetAnalytics handles GET /analytics/:code
func (h *APIHandler) GetAnalytics(c *fiber.Ctx) error {
	code := c.Params("code")

	link, err := h.linkService.GetAnalytics(requestContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": notFoundMessage,
			})
		}
		h.logger.Error("failed to load analytics", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	lastClicked := neverClicked
	if link.LastClickedAt != nil {
		lastClicked = link.LastClickedAt.UTC().Format(analyticsTimeLayout)
	}

	return c.JSON(AnalyticsResponse{
		OriginalURL: link.OriginalURL,
		ShortURL:    h.baseURL.Resolve(c) + "/" + link.ShortCode,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.UTC().Format(analyticsTimeLayout),
		LastClicked: lastClicked,
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
