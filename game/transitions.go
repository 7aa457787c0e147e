package game

import (
	"context"
	"time"

	"trainvoc/models"
)

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// schedule arms the phase timer for the current phase instance. The firing is
// funnelled through the inbox and ignored if the room has moved on by then.
func (r *Room) schedule() {
	r.stopTimer()
	deadline := r.state.deadline()
	if deadline.IsZero() {
		return
	}
	key := r.state.key()
	r.timer = r.clock.AfterFunc(deadline.Sub(r.clock.Now()), func() {
		_ = r.do(context.Background(), func() error {
			r.onTimer(key)
			return nil
		})
	})
}

func (r *Room) onTimer(key phaseKey) {
	if key != r.state.key() {
		r.log.Debug().Str("phase", string(key.phase)).Int("index", key.index).Msg("stale phase timer dropped")
		return
	}
	r.log.Debug().Str("phase", string(key.phase)).Int("index", key.index).Msg("⏰ phase timer expired")
	r.advance()
}

// advance applies the timer transition of the current phase.
func (r *Room) advance() {
	switch st := r.state.(type) {
	case countdownState:
		r.enterQuestion(0)
	case questionState:
		r.enterReveal()
	case revealState:
		r.enterRanking()
	case rankingState:
		if st.index+1 < len(r.pool) {
			r.enterQuestion(st.index + 1)
		} else {
			r.finish("completed")
		}
	}
}

func (r *Room) stateChanged() models.GameStateChanged {
	ev := models.GameStateChanged{
		Type:           models.EventGameStateChanged,
		State:          string(r.state.Phase()),
		QuestionIndex:  questionIndex(r.state),
		TotalQuestions: len(r.pool),
	}
	if dl := r.state.deadline(); !dl.IsZero() {
		ev.RemainingTime = r.remaining(dl)
		ev.DeadlineAt = dl.UnixMilli()
	}
	return ev
}

func (r *Room) enterCountdown() {
	r.state = countdownState{deadlineAt: r.clock.Now().Add(r.cfg.CountdownDuration)}
	r.touch()
	r.broadcast(r.stateChanged())
	r.schedule()
	r.log.Info().Int("questions", len(r.pool)).Msg("🚦 countdown started")
}

func (r *Room) enterQuestion(index int) {
	q := r.pool[index]
	now := r.clock.Now()
	duration := time.Duration(r.settings.QuestionDuration) * time.Second
	for _, p := range r.members {
		p.resetForQuestion()
	}
	st := questionState{index: index, question: q, startedAt: now, deadlineAt: now.Add(duration)}
	r.state = st
	r.touch()

	r.broadcast(r.stateChanged())
	r.broadcast(r.questionEvent(st))
	r.schedule()
	r.log.Info().Int("index", index).Msgf("❓ question %d/%d", index+1, len(r.pool))
}

func (r *Room) questionEvent(st questionState) models.Question {
	return models.Question{
		Type:           models.EventQuestion,
		Text:           st.question.Text(),
		Options:        st.question.Options,
		QuestionIndex:  st.index,
		TotalQuestions: len(r.pool),
		Duration:       r.settings.QuestionDuration,
		DeadlineAt:     st.deadlineAt.UnixMilli(),
	}
}

// allAnswered reports whether every playing member still attached to the
// room has answered. Away members do not hold the question open.
func (r *Room) allAnswered() bool {
	active := 0
	for _, p := range r.members {
		if !p.playing || p.away {
			continue
		}
		active++
		if !p.answered {
			return false
		}
	}
	return active > 0
}

func (r *Room) maybeEarlyAdvance() {
	if _, ok := r.state.(questionState); ok && r.allAnswered() {
		r.log.Debug().Msg("⚡ everyone answered, revealing early")
		r.enterReveal()
	}
}

func (r *Room) enterReveal() {
	qs, ok := r.state.(questionState)
	if !ok {
		return
	}
	r.state = revealState{
		index:      qs.index,
		question:   qs.question,
		deadlineAt: r.clock.Now().Add(r.cfg.RevealDuration),
	}
	r.touch()
	r.broadcast(r.stateChanged())

	results := r.revealResults()
	for _, p := range r.members {
		r.sendTo(p, r.answerResult(p, qs, results))
	}
	r.schedule()
}

func (r *Room) answerResult(p *player, qs questionState, results []models.AnswerOutcome) models.AnswerResult {
	return models.AnswerResult{
		Type:          models.EventAnswerResult,
		QuestionIndex: qs.index,
		Correct:       p.answer.correct,
		CorrectIndex:  qs.question.CorrectIndex,
		CorrectAnswer: qs.question.CorrectAnswer(),
		Points:        p.answer.points,
		Score:         p.score,
		Results:       results,
	}
}

func (r *Room) enterRanking() {
	rs, ok := r.state.(revealState)
	if !ok {
		return
	}
	r.state = rankingState{index: rs.index, deadlineAt: r.clock.Now().Add(r.cfg.RankingDuration)}
	r.touch()
	r.broadcast(r.stateChanged())
	r.broadcast(models.Rankings{
		Type:           models.EventRankings,
		QuestionIndex:  rs.index,
		TotalQuestions: len(r.pool),
		Players:        r.rankings(),
	})
	r.schedule()
}

// finish ends a running game and announces the final standings.
func (r *Room) finish(reason string) {
	if _, done := r.state.(finishedState); done {
		return
	}
	played := questionIndex(r.state) + 1
	r.stopTimer()
	now := r.clock.Now()
	r.state = finishedState{reason: reason, at: now, played: played}
	r.touch()

	final := r.rankings()
	r.broadcast(r.stateChanged())
	r.broadcast(models.GameEnded{
		Type:    models.EventGameEnded,
		Players: final,
		Summary: models.GameSummary{QuestionCount: played, PlayerCount: len(final)},
		Reason:  reason,
	})
	r.log.Info().Str("reason", reason).Int("questions", played).Msg("🏁 game finished")

	if r.gameID != "" && r.reg.onFinished != nil {
		r.reg.onFinished(GameResult{
			GameID:        r.gameID,
			RoomCode:      r.code,
			Level:         r.settings.Level,
			QuestionCount: played,
			PlayerCount:   len(final),
			Reason:        reason,
			StartedAt:     r.startedAt,
			EndedAt:       now,
			Players:       final,
		})
	}
}

// GameResult is handed to the registry's finish hook once per played game.
type GameResult struct {
	GameID        string
	RoomCode      string
	Level         string
	QuestionCount int
	PlayerCount   int
	Reason        string
	StartedAt     time.Time
	EndedAt       time.Time
	Players       []models.RankedPlayer
}
