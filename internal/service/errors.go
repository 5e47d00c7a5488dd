package service

import "errors"

var (
	// ErrVideoNotFound is returned when a video ID does not exist.
	ErrVideoNotFound = errors.New("video not found")

	// ErrAlreadyProcessing is returned when a transcode is requested for
	// a video that already has one in flight.
	ErrAlreadyProcessing = errors.New("video is already processing")

	// ErrNotReprocessable is returned when reprocessing is requested for
	// a video that is not in the failed state.
	ErrNotReprocessable = errors.New("only failed videos can be reprocessed")

	// ErrNotReady is returned when streaming is requested for a video
	// whose HLS output is not available yet.
	ErrNotReady = errors.New("video processing is not complete")
)
