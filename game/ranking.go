package game

import (
	"sort"

	"trainvoc/models"
)

// Standing is the input to a ranking: one playing member.
type Standing struct {
	PlayerID     string
	Name         string
	AvatarID     string
	Score        int
	CorrectCount int
	JoinSeq      int
}

// Rank orders standings by score, then correct answers, then join order, and
// numbers them from 1. The input slice is left untouched.
func Rank(standings []Standing) []models.RankedPlayer {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		return a.JoinSeq < b.JoinSeq
	})

	ranked := make([]models.RankedPlayer, len(sorted))
	for i, s := range sorted {
		ranked[i] = models.RankedPlayer{
			ID:           s.PlayerID,
			Name:         s.Name,
			AvatarID:     s.AvatarID,
			Score:        s.Score,
			Rank:         i + 1,
			CorrectCount: s.CorrectCount,
		}
	}
	return ranked
}
