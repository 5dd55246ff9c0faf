package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/linkqr/internal/app/cache"
	"github.com/sifan077/linkqr/internal/app/model"
	"github.com/sifan077/linkqr/internal/app/repository"
	infraPrometheus "github.com/sifan077/linkqr/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Upper bound on insert attempts when random codes collide at commit time.
const maxCreateAttempts = 5

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*CreateLinkResult, error)
	ResolveLink(ctx context.Context, code string) (string, error)
	GetAnalytics(ctx context.Context, code string) (*model.Link, error)
}

// QRCodeStore renders and persists the scannable image of a short URL.
type QRCodeStore interface {
	Render(content string) ([]byte, error)
	Ref(code string) string
	Save(code string, png []byte) error
}

// LinkServiceDeps groups the collaborators of the link service. Cache and Logger are optional.
type LinkServiceDeps struct {
	Repo      repository.LinkRepository
	Allocator *CodeAllocator
	QRCodes   QRCodeStore
	Cache     cache.LinkCache
	Logger    *zap.Logger
	Now       func() time.Time
}

type linkService struct {
	repo      repository.LinkRepository
	allocator *CodeAllocator
	qrCodes   QRCodeStore
	cache     cache.LinkCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewLinkService returns a service implementation backed by the given dependencies.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	allocator := deps.Allocator
	if allocator == nil {
		allocator = NewCodeAllocator(deps.Repo)
	}
	return &linkService{
		repo:      deps.Repo,
		allocator: allocator,
		qrCodes:   deps.QRCodes,
		cache:     deps.Cache,
		logger:    logger,
		now:       now,
	}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	URL        string
	CustomCode string
	// BaseURL is the scheme+host the short link is served from, without trailing slash.
	BaseURL string
}

// CreateLinkResult is the stored link plus its public URLs.
type CreateLinkResult struct {
	Link      *model.Link
	ShortURL  string
	QRCodeURL string
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*CreateLinkResult, error) {
	if input.URL == "" {
		return nil, ErrMissingURL
	}
	if !strings.HasPrefix(input.URL, "http://") && !strings.HasPrefix(input.URL, "https://") {
		return nil, ErrInvalidURLFormat
	}

	kind := "random"
	if input.CustomCode != "" {
		kind = "custom"
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := s.allocator.Allocate(ctx, input.CustomCode)
		if err != nil {
			return nil, err
		}

		shortURL := input.BaseURL + "/" + code
		png, err := s.qrCodes.Render(shortURL)
		if err != nil {
			return nil, fmt.Errorf("render qr code: %w", err)
		}

		link := &model.Link{
			OriginalURL: input.URL,
			ShortCode:   code,
			QRCode:      s.qrCodes.Ref(code),
			CreatedAt:   s.now(),
		}

		err = s.repo.Create(ctx, link)
		if errors.Is(err, repository.ErrDuplicateCode) {
			s.allocator.Remember(code)
			infraPrometheus.CodeCollisions.Inc()
			if input.CustomCode != "" {
				return nil, ErrCodeTaken
			}
			s.logger.Warn("short code collided on insert, retrying",
				zap.String("code", code),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.allocator.Remember(code)

		// The row is committed; a missing image only breaks the QR link, not redirects.
		if err := s.qrCodes.Save(code, png); err != nil {
			s.logger.Error("failed to save qr code image",
				zap.Error(err),
				zap.String("code", code),
			)
		}

		infraPrometheus.LinksCreated.WithLabelValues(kind).Inc()
		return &CreateLinkResult{
			Link:      link,
			ShortURL:  shortURL,
			QRCodeURL: input.BaseURL + "/" + link.QRCode,
		}, nil
	}

	return nil, ErrCodeSpaceExhausted
}

// ResolveLink returns the redirect target for code and records the click.
func (s *linkService) ResolveLink(ctx context.Context, code string) (string, error) {
	target, err := s.lookupTarget(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			infraPrometheus.Redirects.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	if err := s.repo.RecordClick(ctx, code, s.now()); err != nil {
		return "", fmt.Errorf("record click: %w", err)
	}

	infraPrometheus.Redirects.WithLabelValues("found").Inc()
	return target, nil
}

func (s *linkService) lookupTarget(ctx context.Context, code string) (string, error) {
	if s.cache != nil {
		target, ok, err := s.cache.GetURL(ctx, code)
		switch {
		case err != nil:
			s.logger.Warn("link cache read failed", zap.Error(err), zap.String("code", code))
		case ok:
			infraPrometheus.CacheLookups.WithLabelValues("hit").Inc()
			return target, nil
		default:
			infraPrometheus.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("get link: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetURL(ctx, code, link.OriginalURL); err != nil {
			s.logger.Warn("link cache write failed", zap.Error(err), zap.String("code", code))
		}
	}
	return link.OriginalURL, nil
}

func (s *linkService) GetAnalytics(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}
