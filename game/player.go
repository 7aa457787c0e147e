package game

import "trainvoc/models"

// player is the durable identity of a room member. The transport handle in
// conn comes and goes; everything else survives a reconnect.
type player struct {
	id       string
	name     string
	avatarID string
	joinSeq  int
	playing  bool // false for a host who only watches

	conn    *Conn // nil for REST-only members and while away
	away    bool
	awayGen int
	grace   Timer

	score        int
	correctCount int
	answered     bool
	answer       answerRecord
}

type answerRecord struct {
	index   int
	correct bool
	points  int
}

func (p *player) resetForGame() {
	p.score = 0
	p.correctCount = 0
	p.resetForQuestion()
}

func (p *player) resetForQuestion() {
	p.answered = false
	p.answer = answerRecord{index: -1}
}

func (p *player) stopGrace() {
	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
}

func (p *player) info(hostID string) models.PlayerInfo {
	return models.PlayerInfo{
		ID:           p.id,
		Name:         p.name,
		AvatarID:     p.avatarID,
		IsHost:       p.id == hostID,
		IsPlaying:    p.playing,
		Connected:    !p.away,
		Answered:     p.answered,
		Score:        p.score,
		CorrectCount: p.correctCount,
	}
}

func (p *player) standing() Standing {
	return Standing{
		PlayerID:     p.id,
		Name:         p.name,
		AvatarID:     p.avatarID,
		Score:        p.score,
		CorrectCount: p.correctCount,
		JoinSeq:      p.joinSeq,
	}
}
