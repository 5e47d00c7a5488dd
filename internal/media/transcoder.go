package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/madhusudan785/SnapStream/internal/ffmpeg"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

// Transcoder converts a video source into an HLS rendition: a media
// playlist plus numbered MPEG-TS segments under the asset's HLS
// directory.
type Transcoder struct {
	runner         ffmpeg.Runner
	store          *storage.MediaStore
	segmentSeconds int
	logger         *slog.Logger
}

// NewTranscoder creates a Transcoder producing segments of roughly
// segmentSeconds each.
func NewTranscoder(runner ffmpeg.Runner, store *storage.MediaStore, segmentSeconds int, logger *slog.Logger) *Transcoder {
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{
		runner:         runner,
		store:          store,
		segmentSeconds: segmentSeconds,
		logger:         logger,
	}
}

// Transcode produces the HLS rendition for the video and verifies the
// resulting playlist. On failure any partial output is removed so a
// later retry starts clean.
func (t *Transcoder) Transcode(ctx context.Context, id, sourcePath string) (*PlaylistInfo, error) {
	outDir, err := t.store.HLSDir(id)
	if err != nil {
		return nil, err
	}
	playlistPath, err := t.store.PlaylistPath(id)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-loglevel", "error",
		"-y",
		"-i", sourcePath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-strict", "-2",
		"-f", "hls",
		"-hls_time", strconv.Itoa(t.segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outDir, "segment_%03d.ts"),
		playlistPath,
	}

	if err := t.runner.Run(ctx, args); err != nil {
		t.cleanup(id)
		return nil, fmt.Errorf("transcoding to hls: %w", err)
	}

	data, err := t.store.ReadPlaylist(id)
	if err != nil {
		t.cleanup(id)
		return nil, fmt.Errorf("reading playlist: %w", err)
	}

	info, err := VerifyPlaylist(data)
	if err != nil {
		t.cleanup(id)
		return nil, fmt.Errorf("verifying playlist: %w", err)
	}

	t.logger.Info("transcode complete",
		slog.String("video_id", id),
		slog.Int("segments", info.SegmentCount),
	)
	return info, nil
}

func (t *Transcoder) cleanup(id string) {
	if err := t.store.RemoveHLS(id); err != nil {
		t.logger.Warn("removing partial hls output",
			slog.String("video_id", id),
			slog.String("error", err.Error()),
		)
	}
}
