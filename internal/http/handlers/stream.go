package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/service"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

// MIME types for HLS delivery.
const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"
)

// StreamHandler serves video bytes: whole-file streams, range-windowed
// chunks, HLS playlists and segments, and thumbnails. These routes
// bypass the JSON API layer and write raw responses.
type StreamHandler struct {
	videos    *service.VideoService
	store     *storage.MediaStore
	chunkSize int64
	logger    *slog.Logger
}

// NewStreamHandler creates a new stream handler. chunkSize is the
// default window served when a range request leaves the end open.
func NewStreamHandler(videos *service.VideoService, store *storage.MediaStore, chunkSize int64) *StreamHandler {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &StreamHandler{
		videos:    videos,
		store:     store,
		chunkSize: chunkSize,
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *StreamHandler) WithLogger(logger *slog.Logger) *StreamHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterRoutes registers the raw streaming routes on the router.
func (h *StreamHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/v1/stream/{videoId}", h.ServeFull)
	router.Head("/api/v1/stream/{videoId}", h.ServeFull)
	router.Get("/api/v1/stream/range/{videoId}", h.ServeRange)
	router.Get("/api/v1/stream/{videoId}/master.m3u8", h.ServePlaylist)
	router.Get("/api/v1/stream/{videoId}/{segment}", h.ServeSegment)
	router.Get("/api/v1/thumbnails/{filename}", h.ServeThumbnail)
	router.Head("/api/v1/thumbnails/{filename}", h.ServeThumbnail)
}

// ServeFull streams the entire source file.
func (h *StreamHandler) ServeFull(w http.ResponseWriter, r *http.Request) {
	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}

	file, err := os.Open(video.SourcePath)
	if err != nil {
		h.logger.Error("opening source file", "video_id", video.ID, "error", err)
		http.Error(w, "failed to read video", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "failed to read video", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sourceContentType(video))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Accept-Ranges", "bytes")

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Debug("stream aborted", "video_id", video.ID, "error", err)
	}
}

// ServeRange streams a byte window of the source file as a 206 partial
// response. A request without a Range header gets the whole file; an
// open-ended range serves one window from its start, clamped to the end
// of the file.
func (h *StreamHandler) ServeRange(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Range") == "" {
		h.ServeFull(w, r)
		return
	}

	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}

	file, err := os.Open(video.SourcePath)
	if err != nil {
		h.logger.Error("opening source file", "video_id", video.ID, "error", err)
		http.Error(w, "failed to read video", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "failed to read video", http.StatusInternalServerError)
		return
	}
	fileSize := info.Size()

	start, end, err := parseRange(r.Header.Get("Range"), fileSize, h.chunkSize)
	if err != nil {
		h.logger.Warn("malformed range header",
			"video_id", video.ID,
			"range", r.Header.Get("Range"),
			"error", err)
		http.Error(w, "invalid range", http.StatusInternalServerError)
		return
	}

	length := end - start + 1
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		http.Error(w, "failed to read video", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sourceContentType(video))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusPartialContent)

	// Copy straight from the file so large windows never sit in memory.
	if _, err := io.CopyN(w, file, length); err != nil {
		h.logger.Debug("range write aborted",
			"video_id", video.ID,
			"start", start,
			"end", end,
			"error", err)
	}
}

// ServePlaylist serves the HLS media playlist for a completed video.
func (h *StreamHandler) ServePlaylist(w http.ResponseWriter, r *http.Request) {
	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}
	if !video.IsCompleted() {
		http.Error(w, service.ErrNotReady.Error(), http.StatusConflict)
		return
	}

	data, err := h.store.ReadPlaylist(video.ID.String())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "playlist not found", http.StatusNotFound)
			return
		}
		h.logger.Error("reading playlist", "video_id", video.ID, "error", err)
		http.Error(w, "failed to read playlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// ServeSegment serves one MPEG-TS segment of a completed video.
func (h *StreamHandler) ServeSegment(w http.ResponseWriter, r *http.Request) {
	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}
	if !video.IsCompleted() {
		http.Error(w, service.ErrNotReady.Error(), http.StatusConflict)
		return
	}

	segment := chi.URLParam(r, "segment")
	path, err := h.store.SegmentPath(video.ID.String(), segment)
	if err != nil {
		http.Error(w, "invalid segment name", http.StatusBadRequest)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		h.logger.Error("opening segment",
			"video_id", video.ID,
			"segment", segment,
			"error", err)
		http.Error(w, "failed to read segment", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "failed to read segment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", segmentContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Debug("segment write aborted", "video_id", video.ID, "error", err)
	}
}

// ServeThumbnail serves a thumbnail image by filename.
func (h *StreamHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.store.ThumbnailPath(filename)
	if err != nil {
		http.Error(w, "invalid thumbnail name", http.StatusBadRequest)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "thumbnail not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read thumbnail", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "failed to read thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Debug("thumbnail write aborted", "error", err)
	}
}

// lookupVideo resolves the videoId path parameter, writing an error
// response and returning false when it cannot.
func (h *StreamHandler) lookupVideo(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	rawID := chi.URLParam(r, "videoId")
	id, err := models.ParseULID(rawID)
	if err != nil {
		http.Error(w, "video not found", http.StatusNotFound)
		return nil, false
	}

	video, err := h.videos.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			http.Error(w, "video not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("getting video failed", "video_id", rawID, "error", err)
		http.Error(w, "failed to get video", http.StatusInternalServerError)
		return nil, false
	}
	return video, true
}

// parseRange interprets a Range header against a file of fileSize
// bytes. An open-ended range gets a window of chunkSize bytes, clamped
// to the last byte of the file.
func parseRange(header string, fileSize, chunkSize int64) (start, end int64, err error) {
	if fileSize <= 0 {
		return 0, 0, fmt.Errorf("empty file")
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("unsupported range unit in %q", header)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("missing separator in range %q", header)
	}

	start, err = strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing range start: %w", err)
	}
	if start < 0 || start >= fileSize {
		return 0, 0, fmt.Errorf("range start %d out of bounds", start)
	}

	if endStr = strings.TrimSpace(endStr); endStr == "" {
		end = start + chunkSize - 1
	} else {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing range end: %w", err)
		}
	}
	if end >= fileSize {
		end = fileSize - 1
	}
	if end < start {
		return 0, 0, fmt.Errorf("range end %d before start %d", end, start)
	}

	return start, end, nil
}

// sourceContentType picks the Content-Type for the source file.
func sourceContentType(v *models.Video) string {
	if v.ContentType != "" {
		return v.ContentType
	}
	return "application/octet-stream"
}
