package storage

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/madhusudan785/SnapStream/internal/config"
)

// PlaylistName is the filename of the HLS playlist produced for each video.
const PlaylistName = "master.m3u8"

// segmentNamePattern matches valid HLS segment filenames as produced by the
// transcoder (segment_000.ts, segment_001.ts, ...).
var segmentNamePattern = regexp.MustCompile(`^segment_[0-9]+\.ts$`)

// thumbnailNamePattern matches valid thumbnail filenames.
var thumbnailNamePattern = regexp.MustCompile(`^[0-9A-Za-z]+_thumb\.jpg$`)

// MediaStore organizes video assets on disk. It keeps uploaded sources,
// HLS output directories, and thumbnails in separate subtrees of a single
// sandboxed base directory:
//
//	<base>/videos/<id>.<ext>       uploaded source files
//	<base>/hls/<id>/master.m3u8    HLS playlist per video
//	<base>/hls/<id>/segment_*.ts   HLS segments per video
//	<base>/thumbnails/<id>_thumb.jpg
type MediaStore struct {
	sandbox *Sandbox
	cfg     config.StorageConfig
}

// NewMediaStore creates a MediaStore rooted at the configured base directory.
// The video, HLS, and thumbnail subdirectories are created if missing.
func NewMediaStore(cfg config.StorageConfig) (*MediaStore, error) {
	sandbox, err := NewSandbox(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("creating storage sandbox: %w", err)
	}

	store := &MediaStore{sandbox: sandbox, cfg: cfg}
	for _, dir := range []string{cfg.VideoDir, cfg.HLSDir, cfg.ThumbnailDir} {
		if err := sandbox.MkdirAll(dir); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// BaseDir returns the absolute path of the storage root.
func (m *MediaStore) BaseDir() string {
	return m.sandbox.BaseDir()
}

// SaveSource streams an uploaded source file to disk under the video
// directory, named by the asset ID with the upload's extension. The write
// is atomic. Returns the absolute path and the number of bytes written.
func (m *MediaStore) SaveSource(id, originalFilename string, r io.Reader) (string, int64, error) {
	ext := sanitizeExt(originalFilename)
	rel := path.Join(m.cfg.VideoDir, id+ext)

	written, err := m.sandbox.AtomicWriteReader(rel, r)
	if err != nil {
		return "", 0, fmt.Errorf("saving source file: %w", err)
	}

	abs, err := m.sandbox.ResolvePath(rel)
	if err != nil {
		return "", 0, err
	}
	return abs, written, nil
}

// HLSDir returns the absolute path of the HLS output directory for a video,
// creating it if necessary.
func (m *MediaStore) HLSDir(id string) (string, error) {
	rel := path.Join(m.cfg.HLSDir, id)
	if err := m.sandbox.MkdirAll(rel); err != nil {
		return "", err
	}
	return m.sandbox.ResolvePath(rel)
}

// PlaylistPath returns the absolute path of a video's HLS playlist.
// The file is not required to exist.
func (m *MediaStore) PlaylistPath(id string) (string, error) {
	return m.sandbox.ResolvePath(path.Join(m.cfg.HLSDir, id, PlaylistName))
}

// SegmentPath returns the absolute path of an HLS segment for a video.
// The segment name must match the transcoder's naming scheme; anything
// else is rejected before touching the filesystem.
func (m *MediaStore) SegmentPath(id, segment string) (string, error) {
	if !segmentNamePattern.MatchString(segment) {
		return "", fmt.Errorf("invalid segment name: %s", segment)
	}
	return m.sandbox.ResolvePath(path.Join(m.cfg.HLSDir, id, segment))
}

// ThumbnailName returns the canonical thumbnail filename for a video ID.
func ThumbnailName(id string) string {
	return id + "_thumb.jpg"
}

// ThumbnailPath returns the absolute path for a thumbnail filename.
// The name must match the extractor's naming scheme.
func (m *MediaStore) ThumbnailPath(filename string) (string, error) {
	if !thumbnailNamePattern.MatchString(filename) {
		return "", fmt.Errorf("invalid thumbnail name: %s", filename)
	}
	return m.sandbox.ResolvePath(path.Join(m.cfg.ThumbnailDir, filename))
}

// HasPlaylist reports whether the HLS playlist exists for a video.
func (m *MediaStore) HasPlaylist(id string) (bool, error) {
	return m.sandbox.Exists(path.Join(m.cfg.HLSDir, id, PlaylistName))
}

// ReadPlaylist reads a video's HLS playlist from disk.
func (m *MediaStore) ReadPlaylist(id string) ([]byte, error) {
	return m.sandbox.ReadFile(path.Join(m.cfg.HLSDir, id, PlaylistName))
}

// RemoveHLS deletes a video's HLS output directory and everything in it.
func (m *MediaStore) RemoveHLS(id string) error {
	return m.sandbox.RemoveAll(path.Join(m.cfg.HLSDir, id))
}

// RemoveAsset deletes everything stored for a video: the source file,
// the HLS output directory, and the thumbnail.
func (m *MediaStore) RemoveAsset(id string) error {
	entries, err := m.sandbox.List(m.cfg.VideoDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())) == id {
			if err := m.sandbox.Remove(path.Join(m.cfg.VideoDir, entry.Name())); err != nil {
				return err
			}
		}
	}

	if err := m.RemoveHLS(id); err != nil {
		return err
	}

	thumbRel := path.Join(m.cfg.ThumbnailDir, ThumbnailName(id))
	if exists, err := m.sandbox.Exists(thumbRel); err != nil {
		return err
	} else if exists {
		return m.sandbox.Remove(thumbRel)
	}
	return nil
}

// ListHLSIDs returns the video IDs that currently have an HLS output
// directory on disk. Used by the cleanup sweep to find orphans.
func (m *MediaStore) ListHLSIDs() ([]string, error) {
	entries, err := m.sandbox.List(m.cfg.HLSDir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// HLSDirModTime returns the modification time of a video's HLS directory.
func (m *MediaStore) HLSDirModTime(id string) (time.Time, error) {
	info, err := m.sandbox.Stat(path.Join(m.cfg.HLSDir, id))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// sanitizeExt extracts a safe lowercase file extension from an upload
// filename. Unknown or suspicious extensions fall back to .mp4.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	switch ext {
	case ".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v", ".ts":
		return ext
	default:
		return ".mp4"
	}
}
