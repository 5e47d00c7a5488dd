package repository

import (
	"context"
	"fmt"

	"github.com/madhusudan785/SnapStream/internal/models"
	"gorm.io/gorm"
)

// videoRepo implements VideoRepository using GORM.
type videoRepo struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(db *gorm.DB) *videoRepo {
	return &videoRepo{db: db}
}

// Create creates a new video.
func (r *videoRepo) Create(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("creating video: %w", err)
	}
	return nil
}

// GetByID retrieves a video by ID.
func (r *videoRepo) GetByID(ctx context.Context, id models.ULID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video by ID: %w", err)
	}
	return &video, nil
}

// GetAll retrieves all videos, newest first.
func (r *videoRepo) GetAll(ctx context.Context) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting all videos: %w", err)
	}
	return videos, nil
}

// GetByStatus retrieves all videos in the given status.
func (r *videoRepo) GetByStatus(ctx context.Context, status models.VideoStatus) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("getting videos by status: %w", err)
	}
	return videos, nil
}

// Update updates an existing video.
func (r *videoRepo) Update(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Save(video).Error; err != nil {
		return fmt.Errorf("updating video: %w", err)
	}
	return nil
}

// UpdateStatus updates only the status and error fields of a video.
func (r *videoRepo) UpdateStatus(ctx context.Context, id models.ULID, status models.VideoStatus, processingError string) error {
	updates := map[string]any{
		"status":           status,
		"processing_error": processingError,
	}

	if err := r.db.WithContext(ctx).Table("videos").Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("updating video status: %w", err)
	}
	return nil
}

// Delete hard-deletes a video by ID.
// Uses Unscoped to permanently remove the record so its storage can be
// reclaimed by the cleanup sweep.
func (r *videoRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.Video{}).Error; err != nil {
		return fmt.Errorf("deleting video: %w", err)
	}
	return nil
}

// Count returns the total number of videos.
func (r *videoRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Video{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting videos: %w", err)
	}
	return count, nil
}

// Ensure videoRepo implements VideoRepository at compile time.
var _ VideoRepository = (*videoRepo)(nil)
