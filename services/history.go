// services/history.go - Finished game history
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"trainvoc/game"
	"trainvoc/models"
)

// HistoryRecorder writes finished games to the database on its own
// goroutine so rooms never wait on storage.
type HistoryRecorder struct {
	db      *gorm.DB
	queue   chan game.GameResult
	timeout time.Duration

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewHistoryRecorder(db *gorm.DB, buffer int) *HistoryRecorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &HistoryRecorder{
		db:      db,
		queue:   make(chan game.GameResult, buffer),
		timeout: 10 * time.Second,
	}
}

func (h *HistoryRecorder) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for res := range h.queue {
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			if err := h.Save(ctx, res); err != nil {
				log.Error().Err(err).Str("room", res.RoomCode).Str("game", res.GameID).Msg("❌ failed to record game")
			}
			cancel()
		}
	}()
}

// Record queues a result. It never blocks; results are dropped when the
// queue is full or the recorder has stopped.
func (h *HistoryRecorder) Record(res game.GameResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		log.Warn().Str("room", res.RoomCode).Str("game", res.GameID).Msg("⚠️  history recorder stopped, game not recorded")
		return
	}
	select {
	case h.queue <- res:
	default:
		log.Warn().Str("room", res.RoomCode).Str("game", res.GameID).Msg("⚠️  history queue full, game not recorded")
	}
}

// Stop drains the queue and waits for pending writes.
func (h *HistoryRecorder) Stop() {
	h.mu.Lock()
	if !h.stopped {
		h.stopped = true
		close(h.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// Save writes one game and its final standings in a transaction.
func (h *HistoryRecorder) Save(ctx context.Context, res game.GameResult) error {
	record := models.MultiplayerGame{
		GameID:        res.GameID,
		RoomCode:      res.RoomCode,
		Level:         res.Level,
		QuestionCount: res.QuestionCount,
		PlayerCount:   res.PlayerCount,
		EndReason:     res.Reason,
		StartedAt:     res.StartedAt,
		CompletedAt:   res.EndedAt,
	}
	for _, p := range res.Players {
		record.Players = append(record.Players, models.MultiplayerGamePlayer{
			PlayerID:       p.ID,
			Username:       p.Name,
			AvatarID:       p.AvatarID,
			FinalScore:     p.Score,
			CorrectAnswers: p.CorrectCount,
			Placement:      p.Rank,
		})
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create game record: %w", err)
	}

	log.Info().Str("room", res.RoomCode).Str("game", res.GameID).Int("players", len(res.Players)).Msg("📊 game recorded")
	return nil
}

// Recent returns the latest finished games with their players, newest first.
func (h *HistoryRecorder) Recent(ctx context.Context, limit int) ([]models.MultiplayerGame, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var games []models.MultiplayerGame
	err := h.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("placement ASC") }).
		Order("completed_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return games, nil
}

// ByRoom returns the games played in one room, newest first.
func (h *HistoryRecorder) ByRoom(ctx context.Context, roomCode string) ([]models.MultiplayerGame, error) {
	var games []models.MultiplayerGame
	err := h.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("placement ASC") }).
		Where("room_code = ?", roomCode).
		Order("completed_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load room history: %w", err)
	}
	return games, nil
}

// LeaderboardEntry totals finished games for one display name.
type LeaderboardEntry struct {
	Username   string `json:"username"`
	Games      int    `json:"games"`
	Wins       int    `json:"wins"`
	TotalScore int    `json:"total_score"`
	BestScore  int    `json:"best_score"`
	Correct    int    `json:"correct_answers"`
}

// Leaderboard ranks players across recorded games by total score. Players
// are anonymous, so results are grouped by the name they played under.
func (h *HistoryRecorder) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []LeaderboardEntry
	err := h.db.WithContext(ctx).
		Model(&models.MultiplayerGamePlayer{}).
		Select(`username,
			COUNT(*) AS games,
			SUM(CASE WHEN placement = 1 THEN 1 ELSE 0 END) AS wins,
			SUM(final_score) AS total_score,
			MAX(final_score) AS best_score,
			SUM(correct_answers) AS correct`).
		Group("username").
		Order("total_score DESC, wins DESC, username ASC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}
