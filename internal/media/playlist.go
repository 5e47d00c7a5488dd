package media

import (
	"errors"
	"fmt"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// ErrEmptyPlaylist is returned when a playlist parses but contains no
// segments.
var ErrEmptyPlaylist = errors.New("playlist has no segments")

// PlaylistInfo summarizes a verified media playlist.
type PlaylistInfo struct {
	SegmentCount   int
	TargetDuration int
}

// VerifyPlaylist parses playlist bytes and checks they form a usable
// media playlist with at least one segment.
func VerifyPlaylist(data []byte) (*PlaylistInfo, error) {
	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist: %w", err)
	}

	media, ok := pl.(*playlist.Media)
	if !ok {
		return nil, errors.New("expected media playlist, got multivariant")
	}
	if len(media.Segments) == 0 {
		return nil, ErrEmptyPlaylist
	}

	return &PlaylistInfo{
		SegmentCount:   len(media.Segments),
		TargetDuration: media.TargetDuration,
	}, nil
}
