// services/words_db.go - Word provider backed by the words table
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trainvoc/game"
	"trainvoc/models"
)

// DBWordProvider samples words from the database.
type DBWordProvider struct {
	db *gorm.DB
}

func NewDBWordProvider(db *gorm.DB) *DBWordProvider {
	return &DBWordProvider{db: db}
}

func (p *DBWordProvider) Words(ctx context.Context, level string, n int) ([]game.Word, error) {
	var rows []models.Word
	err := p.db.WithContext(ctx).
		Where("level = ?", strings.ToUpper(strings.TrimSpace(level))).
		Order("RANDOM()").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load words: %w", err)
	}

	words := make([]game.Word, len(rows))
	for i, row := range rows {
		words[i] = game.Word{Term: row.Term, Translation: row.Translation}
	}
	return words, nil
}

func (p *DBWordProvider) Levels(ctx context.Context) (map[string]int, error) {
	var counts []struct {
		Level string
		Count int
	}
	err := p.db.WithContext(ctx).Model(&models.Word{}).
		Select("level, COUNT(*) AS count").
		Group("level").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count words: %w", err)
	}

	out := make(map[string]int, len(counts))
	for _, c := range counts {
		out[c.Level] = c.Count
	}
	return out, nil
}

// ImportWords upserts a word file into the words table keyed by level and
// term. It returns the number of rows written.
func ImportWords(ctx context.Context, db *gorm.DB, wf *WordFile, source string) (int64, error) {
	rows := make([]models.Word, 0, len(wf.Words))
	for _, w := range wf.Words {
		term := strings.TrimSpace(w.Term)
		translation := strings.TrimSpace(w.Translation)
		if term == "" || translation == "" {
			continue
		}
		rows = append(rows, models.Word{
			Level:       wf.Level,
			Term:        term,
			Translation: translation,
			Source:      source,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}, {Name: "term"}},
		DoUpdates: clause.AssignmentColumns([]string{"translation", "source", "updated_at"}),
	}).CreateInBatches(rows, 200)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import words: %w", result.Error)
	}
	return result.RowsAffected, nil
}
