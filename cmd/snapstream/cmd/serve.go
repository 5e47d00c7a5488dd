package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/madhusudan785/SnapStream/internal/config"
	"github.com/madhusudan785/SnapStream/internal/database"
	"github.com/madhusudan785/SnapStream/internal/database/migrations"
	"github.com/madhusudan785/SnapStream/internal/ffmpeg"
	internalhttp "github.com/madhusudan785/SnapStream/internal/http"
	"github.com/madhusudan785/SnapStream/internal/http/handlers"
	"github.com/madhusudan785/SnapStream/internal/media"
	"github.com/madhusudan785/SnapStream/internal/observability"
	"github.com/madhusudan785/SnapStream/internal/repository"
	"github.com/madhusudan785/SnapStream/internal/scheduler"
	"github.com/madhusudan785/SnapStream/internal/service"
	"github.com/madhusudan785/SnapStream/internal/storage"
	"github.com/madhusudan785/SnapStream/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snapstream server",
	Long: `Start the snapstream HTTP server and API.

The server provides:
- REST API for uploading and managing videos
- HLS playlist and segment delivery
- Byte-range streaming of uploaded files
- Health check endpoint and OpenAPI documentation at /docs`,
}

func init() {
	serveCmd.RunE = runServe
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "snapstream.db", "Database DSN")
	serveCmd.Flags().String("data-dir", "./data", "Base directory for stored media")
	serveCmd.Flags().String("ffmpeg", "", "Path to the ffmpeg binary")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
	mustBindPFlag("ffmpeg.binary_path", serveCmd.Flags().Lookup("ffmpeg"))
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyFlagOverrides(cfg)

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(cmd.Context()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	store, err := storage.NewMediaStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing media store: %w", err)
	}

	runner, err := ffmpeg.NewRunner(cfg.FFmpeg, logger)
	if err != nil {
		return fmt.Errorf("resolving ffmpeg: %w", err)
	}
	logger.Info("using ffmpeg binary", slog.String("path", runner.Binary()))

	videoRepo := repository.NewVideoRepository(db.DB)

	videoService := service.NewVideoService(
		videoRepo,
		store,
		media.NewThumbnailExtractor(runner, store, cfg.FFmpeg.ThumbnailOffset, logger),
		media.NewTranscoder(runner, store, cfg.FFmpeg.SegmentSeconds, logger),
	).WithLogger(observability.WithComponent(logger, "service"))

	// Transcodes interrupted by the previous shutdown are unwinnable;
	// reset them so their videos can be reprocessed or deleted.
	if n, err := videoService.RecoverInterrupted(cmd.Context()); err != nil {
		return fmt.Errorf("recovering interrupted videos: %w", err)
	} else if n > 0 {
		logger.Info("reset interrupted videos", slog.Int("count", n))
	}

	sweeper := scheduler.New(videoRepo, store, cfg.Cleanup).WithLogger(observability.WithComponent(logger, "scheduler"))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sweeper.Stop()

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version).WithDB(db).WithRepository(videoRepo)
	healthHandler.Register(server.API())

	videoHandler := handlers.NewVideoHandler(videoService, int64(cfg.Storage.MaxUploadSize)).WithLogger(logger)
	videoHandler.Register(server.API())

	streamHandler := handlers.NewStreamHandler(videoService, store, int64(cfg.Storage.ChunkSize)).WithLogger(logger)
	streamHandler.RegisterRoutes(server.Router())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting snapstream server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// applyFlagOverrides copies explicitly-set serve flags over the loaded
// configuration.
func applyFlagOverrides(cfg *config.Config) {
	flags := serveCmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("database") {
		cfg.Database.DSN, _ = flags.GetString("database")
	}
	if flags.Changed("data-dir") {
		cfg.Storage.BaseDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("ffmpeg") {
		cfg.FFmpeg.BinaryPath, _ = flags.GetString("ffmpeg")
	}
}
