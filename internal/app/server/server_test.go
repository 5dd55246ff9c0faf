package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sifan077/linkqr/internal/app/model"
	"github.com/sifan077/linkqr/internal/app/qr"
	"github.com/sifan077/linkqr/internal/app/repository"
	"github.com/sifan077/linkqr/internal/app/service"
	httpUtil "github.com/sifan077/linkqr/internal/http/util"
	"github.com/sifan077/linkqr/internal/infra/database"
	"github.com/sifan077/linkqr/internal/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *Server
	repo   repository.LinkRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.NewGorm(filepath.Join(dir, "links.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, &model.Link{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.NewLinkRepository(db)
	allocator := service.NewCodeAllocator(repo)
	allocator.Seed(nil)

	staticDir := filepath.Join(dir, "static")
	links := service.NewLinkService(service.LinkServiceDeps{
		Repo:      repo,
		Allocator: allocator,
		QRCodes:   qr.NewStore(staticDir, 128),
	})

	srv := New(Dependencies{
		Links:     links,
		Store:     database.FromGorm(db),
		BaseURL:   httpUtil.NewBaseURLResolver("http://127.0.0.1:8080", true),
		StaticDir: staticDir,
	})

	return &testEnv{server: srv, repo: repo}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.server.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) shorten(t *testing.T, payload map[string]string) (*http.Response, map[string]string) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/shorten", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, body := e.do(t, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp, out
}

func (e *testEnv) analytics(t *testing.T, code string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, body := e.do(t, httptest.NewRequest(http.MethodGet, "/analytics/"+code, nil))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp, out
}

func codeFromShortURL(t *testing.T, shortURL string) string {
	t.Helper()
	const prefix = "http://example.com/"
	require.True(t, len(shortURL) > len(prefix) && shortURL[:len(prefix)] == prefix, shortURL)
	return shortURL[len(prefix):]
}

func TestServer_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	resp, created := env.shorten(t, map[string]string{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://example.com", created["original_url"])

	code := codeFromShortURL(t, created["short_url"])
	assert.Regexp(t, `^[A-Za-z0-9]{6}$`, code)
	assert.Equal(t, "http://example.com/static/qr/"+code+".png", created["qr_code"])

	imgResp, img := env.do(t, httptest.NewRequest(http.MethodGet, "/static/qr/"+code+".png", nil))
	require.Equal(t, http.StatusOK, imgResp.StatusCode)
	assert.Equal(t, []byte("\x89PNG"), img[:4])

	_, before := env.analytics(t, code)
	assert.EqualValues(t, 0, before["clicks"])
	assert.Equal(t, "Never clicked", before["last_clicked"])

	redirect, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/"+code, nil))
	assert.Equal(t, http.StatusFound, redirect.StatusCode)
	assert.Equal(t, "https://example.com", redirect.Header.Get("Location"))

	resp, stats := env.analytics(t, code)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, stats["clicks"])
	assert.Equal(t, "http://example.com/"+code, stats["short_url"])

	lastClicked, err := time.Parse("2006-01-02 15:04:05", stats["last_clicked"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), lastClicked, time.Minute)

	_, err = time.Parse("2006-01-02 15:04:05", stats["created_at"].(string))
	assert.NoError(t, err)
}

func TestServer_CustomCode(t *testing.T) {
	env := newTestEnv(t)

	resp, created := env.shorten(t, map[string]string{"url": "https://example.com/a", "custom_code": "MyCode"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://example.com/MyCode", created["short_url"])

	resp, dup := env.shorten(t, map[string]string{"url": "https://example.com/b", "custom_code": "MyCode"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Custom short code is already taken", dup["error"])

	link, err := env.repo.GetByCode(context.Background(), "MyCode")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", link.OriginalURL)

	// Codes are case-sensitive.
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/mycode", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ShortenRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]string
		want    string
	}{
		{
			name:    "missing url",
			payload: map[string]string{},
			want:    "URL is required",
		},
		{
			name:    "url without scheme",
			payload: map[string]string{"url": "example.com"},
			want:    "Invalid URL format. URL must start with http:// or https://",
		},
		{
			name:    "code with space",
			payload: map[string]string{"url": "https://example.com", "custom_code": "abc def"},
			want:    "Custom short code must be alphanumeric (A-Z, a-z, 0-9) with no spaces, at most 10 characters",
		},
		{
			name:    "code with slash",
			payload: map[string]string{"url": "https://example.com", "custom_code": "abc/def"},
			want:    "Custom short code must be alphanumeric (A-Z, a-z, 0-9) with no spaces, at most 10 characters",
		},
		{
			name:    "reserved code",
			payload: map[string]string{"url": "https://example.com", "custom_code": "health"},
			want:    "Custom short code is reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			resp, out := env.shorten(t, tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, out["error"])

			codes, err := env.repo.ListCodes(context.Background())
			require.NoError(t, err)
			assert.Empty(t, codes)
		})
	}
}

func TestServer_CustomCodesThatLookLikeRoutes(t *testing.T) {
	env := newTestEnv(t)

	for _, code := range []string{"analytics", "shorten", "metrics", "Health", "STATIC"} {
		t.Run(code, func(t *testing.T) {
			target := "https://example.com/" + code

			resp, created := env.shorten(t, map[string]string{"url": target, "custom_code": code})
			require.Equal(t, http.StatusOK, resp.StatusCode, created["error"])
			assert.Equal(t, "http://example.com/"+code, created["short_url"])

			redirect, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/"+code, nil))
			assert.Equal(t, http.StatusFound, redirect.StatusCode)
			assert.Equal(t, target, redirect.Header.Get("Location"))
		})
	}
}

func TestServer_ShortenRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/shorten", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/doesnotexist", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Short URL not found"}`, string(body))

	resp, _ = env.analytics(t, "doesnotexist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodOptions, "/shorten", nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
