// models/multiplayer.go - Finished multiplayer game history
package models

import (
	"time"
)

// MultiplayerGame is one played game, written once when it finishes.
type MultiplayerGame struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	GameID        string `json:"game_id" gorm:"uniqueIndex;not null;size:100"`
	RoomCode      string `json:"room_code" gorm:"index;not null;size:20"`
	Level         string `json:"level" gorm:"size:16;index"`
	QuestionCount int    `json:"question_count" gorm:"default:0"`
	PlayerCount   int    `json:"player_count" gorm:"default:0"`
	EndReason     string `json:"end_reason" gorm:"size:20;index"` // completed, empty, disbanded

	StartedAt   time.Time `json:"started_at" gorm:"index"`
	CompletedAt time.Time `json:"completed_at" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`

	Players []MultiplayerGamePlayer `json:"players,omitempty" gorm:"foreignKey:GameID"`
}

// MultiplayerGamePlayer is a player's final standing in a game.
type MultiplayerGamePlayer struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	GameID uint `json:"game_id" gorm:"not null;index"`

	PlayerID       string `json:"player_id" gorm:"not null;index;size:100"`
	Username       string `json:"username" gorm:"size:100"`
	AvatarID       string `json:"avatar_id" gorm:"size:32"`
	FinalScore     int    `json:"final_score" gorm:"default:0"`
	CorrectAnswers int    `json:"correct_answers" gorm:"default:0"`
	Placement      int    `json:"placement" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
}

func (MultiplayerGame) TableName() string {
	return "multiplayer_games"
}

func (MultiplayerGamePlayer) TableName() string {
	return "multiplayer_game_players"
}

// Duration returns how long the game lasted
func (g *MultiplayerGame) Duration() time.Duration {
	if g.StartedAt.IsZero() || g.CompletedAt.IsZero() {
		return 0
	}
	return g.CompletedAt.Sub(g.StartedAt)
}

// Winner returns the first placed player, if any.
func (g *MultiplayerGame) Winner() *MultiplayerGamePlayer {
	for i := range g.Players {
		if g.Players[i].Placement == 1 {
			return &g.Players[i]
		}
	}
	return nil
}

// AccuracyRate returns percentage of correct answers
func (p *MultiplayerGamePlayer) AccuracyRate(questions int) float64 {
	if questions == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(questions) * 100
}
