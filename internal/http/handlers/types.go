// Package handlers provides HTTP API handlers for snapstream.
package handlers

import (
	"fmt"
	"time"

	"github.com/madhusudan785/SnapStream/internal/models"
)

// VideoResponse represents a video in API responses.
type VideoResponse struct {
	ID              models.ULID `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	ContentType     string      `json:"content_type,omitempty"`
	SizeBytes       int64       `json:"size_bytes"`
	Status          string      `json:"status"`
	ProcessingError string      `json:"processing_error,omitempty"`
	StreamURL       string      `json:"stream_url,omitempty"`
	PlaylistURL     string      `json:"playlist_url,omitempty"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

// StatusResponse reports the processing state of a video.
// ProcessingComplete is true once the status is terminal, so polling
// clients can stop without comparing status strings. Ready is true only
// when the HLS output is actually on disk and playable.
type StatusResponse struct {
	ID                  models.ULID `json:"id"`
	Status              string      `json:"status"`
	ProcessingComplete  bool        `json:"processing_complete"`
	Ready               bool        `json:"ready"`
	ProcessingError     string      `json:"processing_error,omitempty"`
	ProcessingStartedAt string      `json:"processing_started_at,omitempty"`
	ProcessingEndedAt   string      `json:"processing_ended_at,omitempty"`
}

// videoToResponse converts a model to its API representation.
func videoToResponse(v *models.Video) VideoResponse {
	resp := VideoResponse{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		ContentType:     v.ContentType,
		SizeBytes:       v.SizeBytes,
		Status:          string(v.Status),
		ProcessingError: v.ProcessingError,
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v.IsCompleted() {
		resp.StreamURL = fmt.Sprintf("/api/v1/stream/range/%s", v.ID)
		resp.PlaylistURL = fmt.Sprintf("/api/v1/stream/%s/master.m3u8", v.ID)
	}
	if v.ThumbnailFile != "" {
		resp.ThumbnailURL = fmt.Sprintf("/api/v1/thumbnails/%s", v.ThumbnailFile)
	}
	return resp
}

// videoToStatus converts a model to its status representation.
func videoToStatus(v *models.Video) StatusResponse {
	resp := StatusResponse{
		ID:                 v.ID,
		Status:             string(v.Status),
		ProcessingComplete: v.Status.IsTerminal(),
		ProcessingError:    v.ProcessingError,
	}
	if v.ProcessingStartedAt != nil {
		resp.ProcessingStartedAt = v.ProcessingStartedAt.UTC().Format(time.RFC3339)
	}
	if v.ProcessingEndedAt != nil {
		resp.ProcessingEndedAt = v.ProcessingEndedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
