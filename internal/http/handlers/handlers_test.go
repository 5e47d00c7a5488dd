package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/madhusudan785/SnapStream/internal/config"
	"github.com/madhusudan785/SnapStream/internal/media"
	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/repository"
	"github.com/madhusudan785/SnapStream/internal/service"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

const handlerTestPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.000000,
segment_000.ts
#EXT-X-ENDLIST
`

// passRunner fakes ffmpeg by writing plausible output files.
type passRunner struct{}

func (passRunner) Run(_ context.Context, args []string) error {
	out := args[len(args)-1]
	for _, a := range args {
		if a == "-vframes" {
			return os.WriteFile(out, []byte("jpeg"), 0o644)
		}
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(out), "segment_000.ts"), []byte("ts"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(handlerTestPlaylist), 0o644)
}

type handlerEnv struct {
	svc   *service.VideoService
	repo  repository.VideoRepository
	store *storage.MediaStore
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Video{}))

	store, err := storage.NewMediaStore(config.StorageConfig{
		BaseDir:      t.TempDir(),
		VideoDir:     "videos",
		HLSDir:       "hls",
		ThumbnailDir: "thumbnails",
	})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewVideoRepository(db)
	svc := service.NewVideoService(
		repo,
		store,
		media.NewThumbnailExtractor(passRunner{}, store, time.Second, log),
		media.NewTranscoder(passRunner{}, store, 10, log),
	).WithLogger(log)

	return &handlerEnv{svc: svc, repo: repo, store: store}
}

// seedVideo inserts a video record with a source file of the given
// content, in the given status. Completed videos also get an HLS
// rendition on disk.
func (e *handlerEnv) seedVideo(t *testing.T, status models.VideoStatus, content []byte) *models.Video {
	t.Helper()

	id := models.NewULID()
	path, size, err := e.store.SaveSource(id.String(), "clip.mp4", bytes.NewReader(content))
	require.NoError(t, err)

	video := &models.Video{
		Title:       "clip",
		SourcePath:  path,
		ContentType: "video/mp4",
		SizeBytes:   size,
		Status:      status,
	}
	video.ID = id
	require.NoError(t, e.repo.Create(context.Background(), video))

	if status == models.VideoStatusCompleted {
		dir, err := e.store.HLSDir(id.String())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "segment_000.ts"), []byte("segment bytes"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, storage.PlaylistName), []byte(handlerTestPlaylist), 0o644))
	}
	return video
}
