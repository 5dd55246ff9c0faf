package qr

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RenderProducesPNG(t *testing.T) {
	store := NewStore(t.TempDir(), 128)

	data, err := store.Render("http://127.0.0.1:8080/abc123")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestStore_RefAndSave(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 0)

	assert.Equal(t, "static/qr/abc123.png", store.Ref("abc123"))

	require.NoError(t, store.Save("abc123", []byte("png-bytes")))

	got, err := os.ReadFile(filepath.Join(dir, "qr", "abc123.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got)
}
