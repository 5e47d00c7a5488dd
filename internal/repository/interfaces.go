// Package repository defines data access interfaces for snapstream entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/madhusudan785/SnapStream/internal/models"
)

// VideoRepository defines operations for video persistence.
type VideoRepository interface {
	// Create creates a new video.
	Create(ctx context.Context, video *models.Video) error
	// GetByID retrieves a video by ID. Returns nil, nil when not found.
	GetByID(ctx context.Context, id models.ULID) (*models.Video, error)
	// GetAll retrieves all videos, newest first.
	GetAll(ctx context.Context) ([]*models.Video, error)
	// GetByStatus retrieves all videos in the given status.
	GetByStatus(ctx context.Context, status models.VideoStatus) ([]*models.Video, error)
	// Update updates an existing video.
	Update(ctx context.Context, video *models.Video) error
	// UpdateStatus updates only the status and error fields of a video.
	UpdateStatus(ctx context.Context, id models.ULID, status models.VideoStatus, processingError string) error
	// Delete permanently deletes a video by ID.
	Delete(ctx context.Context, id models.ULID) error
	// Count returns the total number of videos.
	Count(ctx context.Context) (int64, error)
}
