package game

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"trainvoc/models"
)

// Config holds the engine tunables. Zero values are replaced by defaults in
// NewRegistry.
type Config struct {
	MaxPlayers int
	CodeLength int

	CountdownDuration time.Duration
	RevealDuration    time.Duration
	RankingDuration   time.Duration

	MinQuestionDuration int // seconds
	MaxQuestionDuration int
	MinOptions          int
	MaxOptions          int
	MinQuestions        int
	MaxQuestions        int
	MaxLevelLength      int
	MaxNameLength       int // runes
	MaxAvatarLength     int

	MaxPoints        int
	MinPoints        int
	LatencyAllowance time.Duration

	ReconnectGrace   time.Duration // negative turns a disconnect into an immediate leave
	WordFetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPlayers:          8,
		CodeLength:          6,
		CountdownDuration:   3 * time.Second,
		RevealDuration:      3 * time.Second,
		RankingDuration:     5 * time.Second,
		MinQuestionDuration: 5,
		MaxQuestionDuration: 120,
		MinOptions:          2,
		MaxOptions:          6,
		MinQuestions:        1,
		MaxQuestions:        50,
		MaxLevelLength:      16,
		MaxNameLength:       24,
		MaxAvatarLength:     32,
		MaxPoints:           1000,
		MinPoints:           100,
		LatencyAllowance:    time.Second,
		ReconnectGrace:      10 * time.Second,
		WordFetchTimeout:    5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.CodeLength < 4 {
		c.CodeLength = d.CodeLength
	}
	if c.CountdownDuration <= 0 {
		c.CountdownDuration = d.CountdownDuration
	}
	if c.RevealDuration <= 0 {
		c.RevealDuration = d.RevealDuration
	}
	if c.RankingDuration <= 0 {
		c.RankingDuration = d.RankingDuration
	}
	if c.MinQuestionDuration <= 0 {
		c.MinQuestionDuration = d.MinQuestionDuration
	}
	if c.MaxQuestionDuration < c.MinQuestionDuration {
		c.MaxQuestionDuration = d.MaxQuestionDuration
	}
	if c.MinOptions < 2 {
		c.MinOptions = d.MinOptions
	}
	if c.MaxOptions < c.MinOptions {
		c.MaxOptions = d.MaxOptions
	}
	if c.MinQuestions <= 0 {
		c.MinQuestions = d.MinQuestions
	}
	if c.MaxQuestions < c.MinQuestions {
		c.MaxQuestions = d.MaxQuestions
	}
	if c.MaxLevelLength <= 0 {
		c.MaxLevelLength = d.MaxLevelLength
	}
	if c.MaxNameLength <= 0 {
		c.MaxNameLength = d.MaxNameLength
	}
	if c.MaxAvatarLength <= 0 {
		c.MaxAvatarLength = d.MaxAvatarLength
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = d.MaxPoints
	}
	if c.MinPoints < 0 || c.MinPoints > c.MaxPoints {
		c.MinPoints = d.MinPoints
	}
	if c.LatencyAllowance < 0 {
		c.LatencyAllowance = 0
	}
	if c.ReconnectGrace == 0 {
		c.ReconnectGrace = d.ReconnectGrace
	}
	if c.WordFetchTimeout <= 0 {
		c.WordFetchTimeout = d.WordFetchTimeout
	}
	return c
}

// ValidateSettings checks a create request against the configured bounds.
func (c Config) ValidateSettings(s models.RoomSettings) error {
	if s.QuestionDuration < c.MinQuestionDuration || s.QuestionDuration > c.MaxQuestionDuration {
		return fmt.Errorf("%w: questionDuration must be between %d and %d seconds",
			ErrInvalidSettings, c.MinQuestionDuration, c.MaxQuestionDuration)
	}
	if s.OptionCount < c.MinOptions || s.OptionCount > c.MaxOptions {
		return fmt.Errorf("%w: optionCount must be between %d and %d",
			ErrInvalidSettings, c.MinOptions, c.MaxOptions)
	}
	if s.TotalQuestionCount < c.MinQuestions || s.TotalQuestionCount > c.MaxQuestions {
		return fmt.Errorf("%w: totalQuestionCount must be between %d and %d",
			ErrInvalidSettings, c.MinQuestions, c.MaxQuestions)
	}
	level := strings.TrimSpace(s.Level)
	if level == "" || len(level) > c.MaxLevelLength {
		return fmt.Errorf("%w: level must be 1 to %d characters", ErrInvalidSettings, c.MaxLevelLength)
	}
	return nil
}

// sanitizeName trims, drops control characters and caps the length in runes.
func sanitizeName(name string, max int) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > max {
		name = strings.TrimSpace(string([]rune(name)[:max]))
	}
	return name
}

func sanitizeAvatar(avatar string, max int) string {
	avatar = strings.TrimSpace(avatar)
	if utf8.RuneCountInString(avatar) > max {
		avatar = string([]rune(avatar)[:max])
	}
	return avatar
}

// normalizeCode makes user-typed room codes comparable.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
