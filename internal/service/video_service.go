// Package service provides the business logic layer for snapstream
// operations.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/madhusudan785/SnapStream/internal/media"
	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/observability"
	"github.com/madhusudan785/SnapStream/internal/repository"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

// UploadRequest carries the metadata and content of a video upload.
type UploadRequest struct {
	Title       string
	Description string
	Filename    string
	ContentType string
	Content     io.Reader
}

// TranscodeTask tracks a background transcode. Done is closed when the
// transcode finishes; Err reports its outcome afterwards.
type TranscodeTask struct {
	done chan struct{}

	mu  sync.Mutex
	err error
}

// Done returns a channel closed when the transcode has finished.
func (t *TranscodeTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the transcode outcome. Valid only after Done is closed.
func (t *TranscodeTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *TranscodeTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// VideoService manages the video lifecycle: upload, transcode,
// reprocess, and lookup.
type VideoService struct {
	repo        repository.VideoRepository
	store       *storage.MediaStore
	thumbnailer *media.ThumbnailExtractor
	transcoder  *media.Transcoder
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[models.ULID]*TranscodeTask
}

// NewVideoService creates a VideoService.
func NewVideoService(
	repo repository.VideoRepository,
	store *storage.MediaStore,
	thumbnailer *media.ThumbnailExtractor,
	transcoder *media.Transcoder,
) *VideoService {
	return &VideoService{
		repo:        repo,
		store:       store,
		thumbnailer: thumbnailer,
		transcoder:  transcoder,
		logger:      slog.Default(),
		inflight:    make(map[models.ULID]*TranscodeTask),
	}
}

// WithLogger sets the logger for the service.
func (s *VideoService) WithLogger(logger *slog.Logger) *VideoService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Upload stores the uploaded source file, creates the video record, and
// kicks off a background transcode. The returned video is in the
// processing state when the kick-off succeeded.
func (s *VideoService) Upload(ctx context.Context, req UploadRequest) (*models.Video, *TranscodeTask, error) {
	video := &models.Video{
		Title:       req.Title,
		Description: req.Description,
		ContentType: req.ContentType,
	}
	video.ID = models.NewULID()

	path, size, err := s.store.SaveSource(video.ID.String(), req.Filename, req.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("saving upload: %w", err)
	}
	video.SourcePath = path
	video.SizeBytes = size

	// Thumbnail extraction is quick, bounded work, so it happens on the
	// request path. A missing thumbnail is acceptable degraded output.
	thumb, err := s.thumbnailer.Extract(ctx, video.ID.String(), video.SourcePath)
	if err != nil {
		s.logger.Warn("thumbnail extraction failed",
			"video_id", video.ID,
			"error", err)
	} else {
		video.ThumbnailFile = thumb
	}

	if err := s.repo.Create(ctx, video); err != nil {
		if rmErr := s.store.RemoveAsset(video.ID.String()); rmErr != nil {
			s.logger.Warn("removing orphaned upload", "video_id", video.ID, "error", rmErr)
		}
		return nil, nil, fmt.Errorf("creating video: %w", err)
	}

	s.logger.Info("video uploaded",
		"video_id", video.ID,
		"title", video.Title,
		"size_bytes", video.SizeBytes)

	task, err := s.startTranscode(ctx, video)
	if err != nil {
		return nil, nil, err
	}
	return video, task, nil
}

// Process starts a background transcode for the video. Returns
// ErrAlreadyProcessing when one is already in flight, and
// models.ErrInvalidTransition when the video is completed.
func (s *VideoService) Process(ctx context.Context, id models.ULID) (*TranscodeTask, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting video: %w", err)
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	return s.startTranscode(ctx, video)
}

// Reprocess restarts the transcode for a failed video, reusing the
// original upload and asset ID.
func (s *VideoService) Reprocess(ctx context.Context, id models.ULID) (*models.Video, *TranscodeTask, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting video: %w", err)
	}
	if video == nil {
		return nil, nil, ErrVideoNotFound
	}
	if video.Status != models.VideoStatusFailed {
		if video.IsProcessing() {
			return nil, nil, ErrAlreadyProcessing
		}
		return nil, nil, ErrNotReprocessable
	}

	task, err := s.startTranscode(ctx, video)
	if err != nil {
		return nil, nil, err
	}
	return video, task, nil
}

func (s *VideoService) startTranscode(ctx context.Context, video *models.Video) (*TranscodeTask, error) {
	s.mu.Lock()
	if _, ok := s.inflight[video.ID]; ok {
		s.mu.Unlock()
		return nil, ErrAlreadyProcessing
	}

	if err := video.MarkProcessing(); err != nil {
		s.mu.Unlock()
		if video.IsProcessing() {
			return nil, ErrAlreadyProcessing
		}
		return nil, err
	}

	task := &TranscodeTask{done: make(chan struct{})}
	s.inflight[video.ID] = task
	s.mu.Unlock()

	if err := s.repo.Update(ctx, video); err != nil {
		s.mu.Lock()
		delete(s.inflight, video.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("updating video: %w", err)
	}

	// The transcode must outlive the originating request. The goroutine
	// gets its own copy so callers can keep reading the returned video.
	bg := context.WithoutCancel(ctx)
	vcopy := *video
	go s.runTranscode(bg, &vcopy, task)

	return task, nil
}

// RecoverInterrupted resets videos stuck in the processing state by an
// unclean shutdown to failed, so they can be reprocessed or deleted.
// Runs at startup, before new transcodes are accepted; videos with a
// live transcode in this process are left alone. Returns the number of
// videos reset.
func (s *VideoService) RecoverInterrupted(ctx context.Context) (int, error) {
	stuck, err := s.repo.GetByStatus(ctx, models.VideoStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("listing processing videos: %w", err)
	}

	recovered := 0
	for _, video := range stuck {
		s.mu.Lock()
		_, inflight := s.inflight[video.ID]
		s.mu.Unlock()
		if inflight {
			continue
		}

		if err := s.repo.UpdateStatus(ctx, video.ID, models.VideoStatusFailed, "interrupted by shutdown"); err != nil {
			return recovered, fmt.Errorf("resetting video %s: %w", video.ID, err)
		}
		s.logger.Warn("reset interrupted video", "video_id", video.ID)
		recovered++
	}
	return recovered, nil
}

// runTranscode performs the HLS transcode and records the terminal
// state.
func (s *VideoService) runTranscode(ctx context.Context, video *models.Video, task *TranscodeTask) {
	defer func() {
		s.mu.Lock()
		delete(s.inflight, video.ID)
		s.mu.Unlock()
	}()

	done := observability.TimedOperation(ctx, s.logger.With("video_id", video.ID), "transcode")
	defer done()

	info, err := s.transcoder.Transcode(ctx, video.ID.String(), video.SourcePath)
	if err != nil {
		s.logger.Error("transcode failed",
			"video_id", video.ID,
			"error", err)
		s.finishTranscode(ctx, video, task, err)
		return
	}

	s.logger.Info("video ready",
		"video_id", video.ID,
		"segments", info.SegmentCount)
	s.finishTranscode(ctx, video, task, nil)
}

func (s *VideoService) finishTranscode(ctx context.Context, video *models.Video, task *TranscodeTask, cause error) {
	var markErr error
	if cause == nil {
		markErr = video.MarkCompleted()
	} else {
		markErr = video.MarkFailed(cause)
	}
	if markErr != nil {
		s.logger.Error("recording transcode outcome",
			"video_id", video.ID,
			"error", markErr)
	} else if err := s.repo.Update(ctx, video); err != nil {
		s.logger.Error("persisting transcode outcome",
			"video_id", video.ID,
			"error", err)
	}
	task.finish(cause)
}

// Get retrieves a video by ID. Returns ErrVideoNotFound when absent.
func (s *VideoService) Get(ctx context.Context, id models.ULID) (*models.Video, error) {
	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting video: %w", err)
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

// GetAll retrieves all videos, newest first.
func (s *VideoService) GetAll(ctx context.Context) ([]*models.Video, error) {
	videos, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing videos: %w", err)
	}
	return videos, nil
}

// IsReady reports whether the video's HLS output is available for
// streaming: the transcode completed and the playlist is on disk.
func (s *VideoService) IsReady(ctx context.Context, id models.ULID) (bool, error) {
	video, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !video.IsCompleted() {
		return false, nil
	}
	return s.store.HasPlaylist(id.String())
}

// Delete removes the video record and all of its on-disk assets.
func (s *VideoService) Delete(ctx context.Context, id models.ULID) error {
	video, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if video.IsProcessing() {
		return ErrAlreadyProcessing
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting video: %w", err)
	}
	if err := s.store.RemoveAsset(id.String()); err != nil {
		return fmt.Errorf("removing video assets: %w", err)
	}
	return nil
}
