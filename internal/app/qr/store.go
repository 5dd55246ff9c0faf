package qr

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/skip2/go-qrcode"
)

const (
	// PublicPrefix is the URL path the static directory is mounted on.
	PublicPrefix = "static"
	subDir       = "qr"
	defaultSize  = 256
)

// Store renders QR images for short URLs and writes them under the static directory.
type Store struct {
	staticDir string
	size      int
}

// NewStore returns a Store writing into staticDir/qr. Non-positive sizes fall back to 256px.
func NewStore(staticDir string, size int) *Store {
	if size <= 0 {
		size = defaultSize
	}
	return &Store{staticDir: staticDir, size: size}
}

// Render encodes content as a PNG with medium error recovery.
func (s *Store) Render(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}

// Ref is the public path of the image for code, relative to the base URL.
func (s *Store) Ref(code string) string {
	return path.Join(PublicPrefix, subDir, code+".png")
}

// Save writes png for code, creating the directory on first use.
func (s *Store) Save(code string, png []byte) error {
	dir := filepath.Join(s.staticDir, subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("qr: create dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, code+".png"), png, 0o644); err != nil {
		return fmt.Errorf("qr: write %s: %w", code, err)
	}
	return nil
}
