// models/word.go
package models

import "time"

// Word is a vocabulary row used when words come from the database.
type Word struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Level       string    `json:"level" gorm:"not null;size:16;uniqueIndex:idx_word_level_term"`
	Term        string    `json:"term" gorm:"not null;size:200;uniqueIndex:idx_word_level_term"`
	Translation string    `json:"translation" gorm:"not null;size:200"`
	Source      string    `json:"source" gorm:"size:100"` // file the row was imported from
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
