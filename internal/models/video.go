package models

import (
	"gorm.io/gorm"
)

// VideoStatus represents the processing state of a video asset.
type VideoStatus string

const (
	// VideoStatusNone indicates the video has been uploaded but processing has not started.
	VideoStatusNone VideoStatus = "none"
	// VideoStatusProcessing indicates transcoding is currently in progress.
	VideoStatusProcessing VideoStatus = "processing"
	// VideoStatusCompleted indicates transcoding finished and HLS output is available.
	VideoStatusCompleted VideoStatus = "completed"
	// VideoStatusFailed indicates transcoding failed.
	VideoStatusFailed VideoStatus = "failed"
)

// Valid returns true if the status is one of the known values.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusNone, VideoStatusProcessing, VideoStatusCompleted, VideoStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if the status is a final state.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// Video represents an uploaded video asset and its processing state.
type Video struct {
	BaseModel

	// Title is the display name of the video.
	Title string `gorm:"not null;size:255" json:"title"`

	// Description is an optional longer description.
	Description string `gorm:"size:4096" json:"description,omitempty"`

	// SourcePath is the filesystem path of the uploaded source file.
	SourcePath string `gorm:"not null;size:1024" json:"-"`

	// ContentType is the MIME type reported at upload time.
	ContentType string `gorm:"size:100" json:"content_type,omitempty"`

	// SizeBytes is the size of the uploaded source file.
	SizeBytes int64 `json:"size_bytes"`

	// ThumbnailFile is the filename of the extracted thumbnail, empty if
	// extraction failed or has not run.
	ThumbnailFile string `gorm:"size:255" json:"thumbnail_file,omitempty"`

	// Status indicates the current processing state.
	Status VideoStatus `gorm:"not null;default:'none';size:20;index" json:"status"`

	// ProcessingError contains the error message from the last failed
	// transcode attempt.
	ProcessingError string `gorm:"size:4096" json:"processing_error,omitempty"`

	// ProcessingStartedAt is when the current/last transcode attempt began.
	ProcessingStartedAt *Time `json:"processing_started_at,omitempty"`

	// ProcessingEndedAt is when the last transcode attempt finished.
	ProcessingEndedAt *Time `json:"processing_ended_at,omitempty"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}

// IsProcessing returns true if a transcode is currently in progress.
func (v *Video) IsProcessing() bool {
	return v.Status == VideoStatusProcessing
}

// IsCompleted returns true if HLS output is available for streaming.
func (v *Video) IsCompleted() bool {
	return v.Status == VideoStatusCompleted
}

// CanProcess returns true if a transcode may be started for this video.
// Uploads that never ran and failed attempts are eligible; a video that is
// already processing or completed is not.
func (v *Video) CanProcess() bool {
	return v.Status == VideoStatusNone || v.Status == VideoStatusFailed
}

// MarkProcessing transitions the video into the processing state.
// Returns ErrInvalidTransition if the video is not eligible.
func (v *Video) MarkProcessing() error {
	if !v.CanProcess() {
		return ErrInvalidTransition
	}
	v.Status = VideoStatusProcessing
	now := Now()
	v.ProcessingStartedAt = &now
	v.ProcessingEndedAt = nil
	v.ProcessingError = ""
	return nil
}

// MarkCompleted transitions the video into the completed state.
func (v *Video) MarkCompleted() error {
	if v.Status != VideoStatusProcessing {
		return ErrInvalidTransition
	}
	v.Status = VideoStatusCompleted
	now := Now()
	v.ProcessingEndedAt = &now
	v.ProcessingError = ""
	return nil
}

// MarkFailed transitions the video into the failed state with the cause.
func (v *Video) MarkFailed(err error) error {
	if v.Status != VideoStatusProcessing {
		return ErrInvalidTransition
	}
	v.Status = VideoStatusFailed
	now := Now()
	v.ProcessingEndedAt = &now
	if err != nil {
		v.ProcessingError = err.Error()
	}
	return nil
}

// Validate performs basic validation on the video.
func (v *Video) Validate() error {
	if v.Title == "" {
		return ErrTitleRequired
	}
	if v.SourcePath == "" {
		return ErrSourcePathRequired
	}
	if v.Status != "" && !v.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the video and generates the ULID.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if err := v.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if v.Status == "" {
		v.Status = VideoStatusNone
	}
	return v.Validate()
}

// BeforeUpdate is a GORM hook that validates the video before update.
func (v *Video) BeforeUpdate(tx *gorm.DB) error {
	return v.Validate()
}
