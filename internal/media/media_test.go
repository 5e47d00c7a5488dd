package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhusudan785/SnapStream/internal/config"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

const validMediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.000000,
segment_000.ts
#EXTINF:10.000000,
segment_001.ts
#EXTINF:4.500000,
segment_002.ts
#EXT-X-ENDLIST
`

const multivariantPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720
variant.m3u8
`

// stubRunner records the args it was given and runs an optional
// callback in place of a real ffmpeg invocation.
type stubRunner struct {
	args []string
	run  func(args []string) error
}

func (s *stubRunner) Run(_ context.Context, args []string) error {
	s.args = args
	if s.run != nil {
		return s.run(args)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *storage.MediaStore {
	t.Helper()

	cfg := config.StorageConfig{
		BaseDir:      t.TempDir(),
		VideoDir:     "videos",
		HLSDir:       "hls",
		ThumbnailDir: "thumbnails",
	}

	store, err := storage.NewMediaStore(cfg)
	require.NoError(t, err)
	return store
}

func TestVerifyPlaylist(t *testing.T) {
	info, err := VerifyPlaylist([]byte(validMediaPlaylist))
	require.NoError(t, err)
	assert.Equal(t, 3, info.SegmentCount)
	assert.Equal(t, 10, info.TargetDuration)
}

func TestVerifyPlaylist_Multivariant(t *testing.T) {
	_, err := VerifyPlaylist([]byte(multivariantPlaylist))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multivariant")
}

func TestVerifyPlaylist_Garbage(t *testing.T) {
	_, err := VerifyPlaylist([]byte("not a playlist"))
	require.Error(t, err)
}

func TestThumbnailExtractor_Extract(t *testing.T) {
	store := setupTestStore(t)
	runner := &stubRunner{}
	extractor := NewThumbnailExtractor(runner, store, time.Second, testLogger())

	name, err := extractor.Extract(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.NoError(t, err)
	assert.Equal(t, "01ABC_thumb.jpg", name)

	require.NotEmpty(t, runner.args)
	assert.Equal(t, []string{
		"-loglevel", "error",
		"-y",
		"-ss", "00:00:01.000",
		"-i", "/src/01ABC.mp4",
		"-vframes", "1",
		"-f", "image2",
	}, runner.args[:len(runner.args)-1])
	assert.True(t, strings.HasSuffix(runner.args[len(runner.args)-1], filepath.Join("thumbnails", "01ABC_thumb.jpg")))
}

func TestThumbnailExtractor_RunnerError(t *testing.T) {
	store := setupTestStore(t)
	runner := &stubRunner{run: func([]string) error { return errors.New("boom") }}
	extractor := NewThumbnailExtractor(runner, store, time.Second, testLogger())

	_, err := extractor.Extract(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extracting thumbnail")
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{time.Second, "00:00:01.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{90 * time.Second, "00:01:30.000"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03.000"},
		{-time.Second, "00:00:00.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatOffset(tt.d))
	}
}

func TestTranscoder_Transcode(t *testing.T) {
	store := setupTestStore(t)
	runner := &stubRunner{run: func(args []string) error {
		// Last arg is the playlist path; write a plausible rendition.
		out := args[len(args)-1]
		dir := filepath.Dir(out)
		for _, seg := range []string{"segment_000.ts", "segment_001.ts", "segment_002.ts"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, seg), []byte("ts"), 0o644))
		}
		return os.WriteFile(out, []byte(validMediaPlaylist), 0o644)
	}}
	tc := NewTranscoder(runner, store, 10, testLogger())

	info, err := tc.Transcode(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.NoError(t, err)
	assert.Equal(t, 3, info.SegmentCount)

	assert.Contains(t, runner.args, "-hls_time")
	assert.Contains(t, runner.args, "10")
	assert.Contains(t, runner.args, "libx264")
	assert.True(t, strings.HasSuffix(runner.args[len(runner.args)-1], storage.PlaylistName))

	var segPattern string
	for i, a := range runner.args {
		if a == "-hls_segment_filename" {
			segPattern = runner.args[i+1]
		}
	}
	assert.True(t, strings.HasSuffix(segPattern, "segment_%03d.ts"))
}

func TestTranscoder_RunnerError_CleansUp(t *testing.T) {
	store := setupTestStore(t)
	runner := &stubRunner{run: func(args []string) error {
		out := args[len(args)-1]
		require.NoError(t, os.WriteFile(out, []byte("partial"), 0o644))
		return errors.New("encoder crashed")
	}}
	tc := NewTranscoder(runner, store, 10, testLogger())

	_, err := tc.Transcode(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.Error(t, err)

	exists, err := store.HasPlaylist("01ABC")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTranscoder_EmptyPlaylist_CleansUp(t *testing.T) {
	store := setupTestStore(t)
	empty := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-ENDLIST\n"
	runner := &stubRunner{run: func(args []string) error {
		return os.WriteFile(args[len(args)-1], []byte(empty), 0o644)
	}}
	tc := NewTranscoder(runner, store, 10, testLogger())

	_, err := tc.Transcode(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verifying playlist")

	exists, err := store.HasPlaylist("01ABC")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTranscoder_MissingPlaylist(t *testing.T) {
	store := setupTestStore(t)
	runner := &stubRunner{}
	tc := NewTranscoder(runner, store, 10, testLogger())

	_, err := tc.Transcode(context.Background(), "01ABC", "/src/01ABC.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading playlist")
}
