package scheduler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/madhusudan785/SnapStream/internal/config"
	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/repository"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

func setupSweep(t *testing.T, retention time.Duration) (*Scheduler, repository.VideoRepository, *storage.MediaStore) {
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

	repo := repository.NewVideoRepository(db)
	sched := New(repo, store, config.CleanupConfig{
		Enabled:   true,
		Cron:      "0 3 * * *",
		Retention: retention,
	}).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return sched, repo, store
}

// writeHLSOutput creates a fake rendition under the store's HLS dir and
// backdates its directory mtime.
func writeHLSOutput(t *testing.T, store *storage.MediaStore, id string, age time.Duration) {
	t.Helper()

	dir, err := store.HLSDir(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.PlaylistName), []byte("#EXTM3U\n"), 0o644))

	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(dir, old, old))
}

func TestSweep_RemovesOrphans(t *testing.T) {
	sched, repo, store := setupSweep(t, time.Hour)
	ctx := context.Background()

	video := &models.Video{
		Title:      "kept",
		SourcePath: "/data/kept.mp4",
	}
	require.NoError(t, repo.Create(ctx, video))
	writeHLSOutput(t, store, video.ID.String(), 48*time.Hour)

	orphan := models.NewULID().String()
	writeHLSOutput(t, store, orphan, 48*time.Hour)

	result, err := sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 1, result.Skipped)

	ids, err := store.ListHLSIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{video.ID.String()}, ids)
}

func TestSweep_RespectsRetention(t *testing.T) {
	sched, _, store := setupSweep(t, 24*time.Hour)
	ctx := context.Background()

	recent := models.NewULID().String()
	writeHLSOutput(t, store, recent, time.Hour)

	result, err := sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 1, result.Skipped)

	ids, err := store.ListHLSIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSweep_NonULIDDirTreatedAsOrphan(t *testing.T) {
	sched, _, store := setupSweep(t, time.Hour)

	writeHLSOutput(t, store, "notanulid", 48*time.Hour)

	result, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
}

func TestSweep_Empty(t *testing.T) {
	sched, _, _ := setupSweep(t, time.Hour)

	result, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Scanned)
}

func TestStartStop(t *testing.T) {
	sched, _, _ := setupSweep(t, time.Hour)

	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestStart_Disabled(t *testing.T) {
	sched, _, _ := setupSweep(t, time.Hour)
	sched.cfg.Enabled = false

	require.NoError(t, sched.Start())
	assert.Zero(t, sched.entryID)
}

func TestStart_BadCron(t *testing.T) {
	sched, _, _ := setupSweep(t, time.Hour)
	sched.cfg.Cron = "not a cron"

	err := sched.Start()
	require.Error(t, err)
}
