// Package media turns uploaded video sources into streamable assets:
// thumbnail extraction, HLS transcoding, and playlist verification.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/madhusudan785/SnapStream/internal/ffmpeg"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

// ThumbnailExtractor grabs a single still frame from a video source.
type ThumbnailExtractor struct {
	runner ffmpeg.Runner
	store  *storage.MediaStore
	offset time.Duration
	logger *slog.Logger
}

// NewThumbnailExtractor creates a ThumbnailExtractor.
// offset is how far into the video the frame is taken from.
func NewThumbnailExtractor(runner ffmpeg.Runner, store *storage.MediaStore, offset time.Duration, logger *slog.Logger) *ThumbnailExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThumbnailExtractor{
		runner: runner,
		store:  store,
		offset: offset,
		logger: logger,
	}
}

// Extract writes a JPEG thumbnail for the video into the thumbnail
// directory and returns its filename.
func (e *ThumbnailExtractor) Extract(ctx context.Context, id, sourcePath string) (string, error) {
	name := storage.ThumbnailName(id)
	dest, err := e.store.ThumbnailPath(name)
	if err != nil {
		return "", err
	}

	args := []string{
		"-loglevel", "error",
		"-y",
		"-ss", formatOffset(e.offset),
		"-i", sourcePath,
		"-vframes", "1",
		"-f", "image2",
		dest,
	}

	if err := e.runner.Run(ctx, args); err != nil {
		return "", fmt.Errorf("extracting thumbnail: %w", err)
	}

	e.logger.Debug("thumbnail extracted",
		slog.String("video_id", id),
		slog.String("file", name),
	)
	return name, nil
}

// formatOffset renders a duration as an ffmpeg HH:MM:SS.mmm timestamp.
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
