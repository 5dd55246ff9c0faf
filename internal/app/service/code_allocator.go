package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	RandomCodeLength    = 6
	MaxCodeLength       = 10
	maxAllocateAttempts = 5

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	bloomMinCapacity   = 100_000
	bloomFalsePositive = 0.01
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Codes shadowed by GET /health and the /static mount. Matching is case-sensitive like routing.
var reservedCodes = map[string]struct{}{
	"health": {},
	"static": {},
}

// CodeChecker reports whether a short code is already stored.
type CodeChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// CodeAllocator hands out short codes that are not yet stored.
//
// The availability check is advisory: two callers can still pick the same
// code between check and insert, so the store's unique index stays the
// authority and callers must handle a duplicate on insert.
type CodeAllocator struct {
	checker CodeChecker
	random  func() (string, error)

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeAllocator returns an allocator backed by checker.
func NewCodeAllocator(checker CodeChecker) *CodeAllocator {
	return &CodeAllocator{
		checker: checker,
		random:  randomCode,
	}
}

// Seed loads known codes into a bloom filter so most availability checks skip the store.
func (a *CodeAllocator) Seed(codes []string) {
	capacity := uint(len(codes) * 2)
	if capacity < bloomMinCapacity {
		capacity = bloomMinCapacity
	}

	filter := bloom.NewWithEstimates(capacity, bloomFalsePositive)
	for _, code := range codes {
		filter.AddString(code)
	}

	a.mu.Lock()
	a.filter = filter
	a.mu.Unlock()
}

// Remember records a code that is now stored.
func (a *CodeAllocator) Remember(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filter != nil {
		a.filter.AddString(code)
	}
}

// Allocate validates custom when set, otherwise generates a random code.
func (a *CodeAllocator) Allocate(ctx context.Context, custom string) (string, error) {
	if custom != "" {
		if err := ValidateCustomCode(custom); err != nil {
			return "", err
		}
		taken, err := a.taken(ctx, custom)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if taken {
			return "", ErrCodeTaken
		}
		return custom, nil
	}

	for i := 0; i < maxAllocateAttempts; i++ {
		code, err := a.random()
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		if _, reserved := reservedCodes[code]; reserved {
			continue
		}
		taken, err := a.taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}

func (a *CodeAllocator) taken(ctx context.Context, code string) (bool, error) {
	a.mu.RLock()
	filter := a.filter
	maybe := filter == nil || filter.TestString(code)
	a.mu.RUnlock()

	if !maybe {
		return false, nil
	}
	return a.checker.Exists(ctx, code)
}

// ValidateCustomCode checks the caller-supplied code format.
func ValidateCustomCode(code string) error {
	if len(code) > MaxCodeLength || !codePattern.MatchString(code) {
		return ErrInvalidCodeFormat
	}
	if _, reserved := reservedCodes[code]; reserved {
		return ErrCodeReserved
	}
	return nil
}

func randomCode() (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, RandomCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
