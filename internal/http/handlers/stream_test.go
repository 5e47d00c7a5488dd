package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhusudan785/SnapStream/internal/models"
)

func newStreamRouter(env *handlerEnv, chunkSize int64) *chi.Mux {
	router := chi.NewRouter()
	handler := NewStreamHandler(env.svc, env.store, chunkSize)
	handler.RegisterRoutes(router)
	return router
}

func sourceBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestServeRange_ExplicitWindow(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	req.Header.Set("Range", "bytes=10-19")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 10-19/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, sourceBytes(100)[10:20], rec.Body.Bytes())
}

func TestServeRange_OpenEnded(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	req.Header.Set("Range", "bytes=50-")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 50-81/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, sourceBytes(100)[50:82], rec.Body.Bytes())
}

func TestServeRange_OpenEndedClampedToEOF(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	req.Header.Set("Range", "bytes=90-")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 90-99/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, sourceBytes(100)[90:], rec.Body.Bytes())
}

func TestServeRange_NoHeaderServesWholeFile(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sourceBytes(100), rec.Body.Bytes())
}

func TestServeRange_ExplicitWindowLargerThanChunk(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 16)

	// An explicit window is honored in full; only open-ended ranges are
	// capped at the chunk size.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	req.Header.Set("Range", "bytes=0-99")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-99/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, sourceBytes(100), rec.Body.Bytes())
}

func TestServeRange_EndPastEOFClamped(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
	req.Header.Set("Range", "bytes=95-200")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 95-99/100", rec.Header().Get("Content-Range"))
}

func TestServeRange_Malformed(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(100))
	router := newStreamRouter(env, 32)

	tests := []string{
		"units=0-10",
		"bytes=abc-",
		"bytes=10",
		"bytes=-",
		"bytes=100-",
		"bytes=50-10",
	}
	for _, header := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+video.ID.String(), nil)
		req.Header.Set("Range", header)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, "header %q", header)
	}
}

func TestServeRange_UnknownVideo(t *testing.T) {
	env := setupHandlerEnv(t)
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/range/"+models.NewULID().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFull(t *testing.T) {
	env := setupHandlerEnv(t)
	content := sourceBytes(100)
	video := env.seedVideo(t, models.VideoStatusCompleted, content)
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/"+video.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, content, rec.Body.Bytes())
}

func TestServePlaylist(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/master.m3u8", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, handlerTestPlaylist, rec.Body.String())
}

func TestServePlaylist_Missing(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))
	require.NoError(t, env.store.RemoveHLS(video.ID.String()))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/master.m3u8", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServePlaylist_NotCompleted(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusProcessing, sourceBytes(10))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/master.m3u8", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServeSegment(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/segment_000.ts", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "segment bytes", rec.Body.String())
}

func TestServeSegment_Missing(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/segment_007.ts", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeSegment_BadName(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stream/%s/notasegment.ts", video.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeThumbnail(t *testing.T) {
	env := setupHandlerEnv(t)
	video := env.seedVideo(t, models.VideoStatusCompleted, sourceBytes(10))

	name := video.ID.String() + "_thumb.jpg"
	path, err := env.store.ThumbnailPath(name)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o644))

	router := newStreamRouter(env, 32)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/"+name, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg bytes", rec.Body.String())
}

func TestServeThumbnail_Missing(t *testing.T) {
	env := setupHandlerEnv(t)
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/01AAAAAAAAAAAAAAAAAAAAAAAA_thumb.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeThumbnail_BadName(t *testing.T) {
	env := setupHandlerEnv(t)
	router := newStreamRouter(env, 32)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/secret.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		fileSize  int64
		chunkSize int64
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{"explicit", "bytes=10-19", 100, 32, 10, 19, false},
		{"open ended", "bytes=50-", 100, 32, 50, 81, false},
		{"open ended clamped", "bytes=90-", 100, 32, 90, 99, false},
		{"end clamped", "bytes=0-500", 100, 32, 0, 99, false},
		{"whole file", "bytes=0-99", 100, 32, 0, 99, false},
		{"bad unit", "units=0-10", 100, 32, 0, 0, true},
		{"no separator", "bytes=10", 100, 32, 0, 0, true},
		{"empty start", "bytes=-", 100, 32, 0, 0, true},
		{"start at eof", "bytes=100-", 100, 32, 0, 0, true},
		{"negative window", "bytes=50-10", 100, 32, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.header, tt.fileSize, tt.chunkSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
