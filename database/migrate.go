// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"trainvoc/models"
)

// RunMigrations creates the word and game history tables.
func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.Word{},
		&models.MultiplayerGame{},
		&models.MultiplayerGamePlayer{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	log.Info().Msg("✅ All migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_words_level ON words(level)",
		"CREATE INDEX IF NOT EXISTS idx_game_players_score ON multiplayer_game_players(final_score DESC)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			log.Warn().Err(err).Str("sql", stmt).Msg("⚠️  index not created")
		}
	}
}
