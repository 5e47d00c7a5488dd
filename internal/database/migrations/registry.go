package migrations

import (
	"github.com/madhusudan785/SnapStream/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002ProcessingTimestamps(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create videos table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Video{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&models.Video{})
		},
	}
}

// migration002ProcessingTimestamps is a one-time backfill for rows that
// predate the startup recovery step: any row recorded as processing by
// an older build is reset to failed. Ongoing crash recovery happens at
// serve startup via VideoService.RecoverInterrupted, not here, since a
// recorded migration never runs again.
func migration002ProcessingTimestamps() Migration {
	return Migration{
		Version:     "002",
		Description: "Backfill interrupted processing videos to failed",
		Up: func(tx *gorm.DB) error {
			// Table update to bypass model hooks on the batch write.
			return tx.Table("videos").
				Where("status = ?", models.VideoStatusProcessing).
				Updates(map[string]any{
					"status":           models.VideoStatusFailed,
					"processing_error": "interrupted by shutdown",
				}).Error
		},
		Down: func(tx *gorm.DB) error {
			return nil
		},
	}
}
