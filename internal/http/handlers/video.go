package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/service"
)

// VideoHandler handles video management endpoints.
type VideoHandler struct {
	videos        *service.VideoService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(videos *service.VideoService, maxUploadSize int64) *VideoHandler {
	return &VideoHandler{
		videos:        videos,
		maxUploadSize: maxUploadSize,
		logger:        slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *VideoHandler) WithLogger(logger *slog.Logger) *VideoHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Register registers the video routes with the API.
func (h *VideoHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:      "uploadVideo",
		Method:           http.MethodPost,
		Path:             "/api/v1/videos/add",
		Summary:          "Upload video",
		Description:      "Uploads a video file and starts transcoding it to HLS",
		Tags:             []string{"Videos"},
		DefaultStatus:    http.StatusCreated,
		RequestBody:      &huma.RequestBody{Content: map[string]*huma.MediaType{"multipart/form-data": {}}},
		SkipValidateBody: true,
	}, h.UploadVideo)

	huma.Register(api, huma.Operation{
		OperationID: "listVideos",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos",
		Summary:     "List videos",
		Tags:        []string{"Videos"},
	}, h.ListVideos)

	huma.Register(api, huma.Operation{
		OperationID: "getVideo",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos/{videoId}",
		Summary:     "Get video",
		Tags:        []string{"Videos"},
	}, h.GetVideo)

	huma.Register(api, huma.Operation{
		OperationID: "getVideoStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos/{videoId}/status",
		Summary:     "Get video processing status",
		Tags:        []string{"Videos"},
	}, h.GetVideoStatus)

	huma.Register(api, huma.Operation{
		OperationID: "reprocessVideo",
		Method:      http.MethodPost,
		Path:        "/api/v1/videos/{videoId}/reprocess",
		Summary:     "Reprocess video",
		Description: "Restarts transcoding for a failed video using the original upload",
		Tags:        []string{"Videos"},
	}, h.ReprocessVideo)

	huma.Register(api, huma.Operation{
		OperationID: "deleteVideo",
		Method:      http.MethodDelete,
		Path:        "/api/v1/videos/{videoId}",
		Summary:     "Delete video",
		Description: "Deletes a video record and all of its files",
		Tags:        []string{"Videos"},
	}, h.DeleteVideo)
}

// UploadVideoInput is the input for uploading a video.
type UploadVideoInput struct {
	RawBody multipart.Form
}

// UploadVideoOutput is the output for uploading a video.
type UploadVideoOutput struct {
	Body VideoResponse
}

// UploadVideo handles a multipart video upload.
func (h *VideoHandler) UploadVideo(ctx context.Context, input *UploadVideoInput) (*UploadVideoOutput, error) {
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("No file provided")
	}
	fileHeader := files[0]

	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, "Uploaded file is too large")
	}

	title := fileHeader.Filename
	if titles := input.RawBody.Value["title"]; len(titles) > 0 && titles[0] != "" {
		title = titles[0]
	}
	var description string
	if descs := input.RawBody.Value["description"]; len(descs) > 0 {
		description = descs[0]
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to open uploaded file")
	}
	defer file.Close()

	video, _, err := h.videos.Upload(ctx, service.UploadRequest{
		Title:       title,
		Description: description,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		if errors.Is(err, models.ErrTitleRequired) {
			return nil, huma.Error400BadRequest("Title is required")
		}
		h.logger.Error("video upload failed", "error", err)
		return nil, huma.Error500InternalServerError("Failed to store uploaded video")
	}

	return &UploadVideoOutput{Body: videoToResponse(video)}, nil
}

// ListVideosInput is the input for listing videos.
type ListVideosInput struct{}

// ListVideosOutput is the output for listing videos.
type ListVideosOutput struct {
	Body struct {
		Videos []VideoResponse `json:"videos"`
		Count  int             `json:"count"`
	}
}

// ListVideos returns all videos, newest first.
func (h *VideoHandler) ListVideos(ctx context.Context, _ *ListVideosInput) (*ListVideosOutput, error) {
	videos, err := h.videos.GetAll(ctx)
	if err != nil {
		h.logger.Error("listing videos failed", "error", err)
		return nil, huma.Error500InternalServerError("Failed to list videos")
	}

	out := &ListVideosOutput{}
	out.Body.Videos = make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out.Body.Videos = append(out.Body.Videos, videoToResponse(v))
	}
	out.Body.Count = len(out.Body.Videos)
	return out, nil
}

// VideoIDInput identifies a video by path parameter.
type VideoIDInput struct {
	VideoID string `path:"videoId" doc:"Video ID"`
}

// GetVideoOutput is the output for fetching a single video.
type GetVideoOutput struct {
	Body VideoResponse
}

// GetVideo returns a single video by ID.
func (h *VideoHandler) GetVideo(ctx context.Context, input *VideoIDInput) (*GetVideoOutput, error) {
	video, err := h.lookup(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}
	return &GetVideoOutput{Body: videoToResponse(video)}, nil
}

// GetVideoStatusOutput is the output for the status endpoint.
type GetVideoStatusOutput struct {
	Body StatusResponse
}

// GetVideoStatus returns the processing status of a video.
func (h *VideoHandler) GetVideoStatus(ctx context.Context, input *VideoIDInput) (*GetVideoStatusOutput, error) {
	video, err := h.lookup(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}

	resp := videoToStatus(video)
	if video.IsCompleted() {
		ready, err := h.videos.IsReady(ctx, video.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to check video readiness")
		}
		resp.Ready = ready
	}
	return &GetVideoStatusOutput{Body: resp}, nil
}

// ReprocessVideoOutput is the output for the reprocess endpoint.
type ReprocessVideoOutput struct {
	Body VideoResponse
}

// ReprocessVideo restarts transcoding for a failed video.
func (h *VideoHandler) ReprocessVideo(ctx context.Context, input *VideoIDInput) (*ReprocessVideoOutput, error) {
	id, err := models.ParseULID(input.VideoID)
	if err != nil {
		return nil, huma.Error404NotFound("Video not found")
	}

	video, _, err := h.videos.Reprocess(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVideoNotFound):
			return nil, huma.Error404NotFound("Video not found")
		case errors.Is(err, service.ErrAlreadyProcessing):
			return nil, huma.Error409Conflict("Video is already processing")
		case errors.Is(err, service.ErrNotReprocessable):
			return nil, huma.Error409Conflict("Only failed videos can be reprocessed")
		default:
			h.logger.Error("reprocess failed", "video_id", input.VideoID, "error", err)
			return nil, huma.Error500InternalServerError("Failed to reprocess video")
		}
	}

	return &ReprocessVideoOutput{Body: videoToResponse(video)}, nil
}

// DeleteVideoOutput is the output for the delete endpoint.
type DeleteVideoOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// DeleteVideo removes a video and its files.
func (h *VideoHandler) DeleteVideo(ctx context.Context, input *VideoIDInput) (*DeleteVideoOutput, error) {
	id, err := models.ParseULID(input.VideoID)
	if err != nil {
		return nil, huma.Error404NotFound("Video not found")
	}

	if err := h.videos.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, service.ErrVideoNotFound):
			return nil, huma.Error404NotFound("Video not found")
		case errors.Is(err, service.ErrAlreadyProcessing):
			return nil, huma.Error409Conflict("Video is processing and cannot be deleted")
		default:
			h.logger.Error("delete failed", "video_id", input.VideoID, "error", err)
			return nil, huma.Error500InternalServerError("Failed to delete video")
		}
	}

	out := &DeleteVideoOutput{}
	out.Body.Success = true
	out.Body.Message = "Video deleted"
	return out, nil
}

// lookup resolves an ID path parameter to a video, mapping errors to
// HTTP status errors.
func (h *VideoHandler) lookup(ctx context.Context, rawID string) (*models.Video, error) {
	id, err := models.ParseULID(rawID)
	if err != nil {
		return nil, huma.Error404NotFound("Video not found")
	}
	video, err := h.videos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return nil, huma.Error404NotFound("Video not found")
		}
		h.logger.Error("getting video failed", "video_id", rawID, "error", err)
		return nil, huma.Error500InternalServerError("Failed to get video")
	}
	return video, nil
}
