package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trainvoc/models"
)

// Membership is what a client needs to act as a room member.
type Membership struct {
	RoomCode string              `json:"roomCode"`
	PlayerID string              `json:"playerId"`
	HostID   string              `json:"hostId"`
	Token    string              `json:"token,omitempty"`
	Settings models.RoomSettings `json:"settings"`
}

func (r *Room) membership(p *player) Membership {
	return Membership{
		RoomCode: r.code,
		PlayerID: p.id,
		HostID:   r.hostID,
		Token:    r.token(p.id),
		Settings: r.settings,
	}
}

func (r *Room) addMember(conn *Conn, name, avatarID string, playing bool) *player {
	r.joinSeq++
	p := &player{
		id:       uuid.NewString(),
		name:     name,
		avatarID: avatarID,
		joinSeq:  r.joinSeq,
		playing:  playing,
		conn:     conn,
	}
	p.resetForGame()
	r.members = append(r.members, p)
	if conn != nil {
		conn.bind(r.code, p.id)
	}
	r.touch()
	return p
}

func (r *Room) claim(conn *Conn) error {
	if conn != nil && !conn.tryBind(r.code) {
		return ErrAlreadyInRoom
	}
	return nil
}

func (r *Room) create(conn *Conn, name, avatarID string) (Membership, error) {
	if err := r.claim(conn); err != nil {
		return Membership{}, err
	}
	host := r.addMember(conn, name, avatarID, r.settings.HostWantsToJoin)
	r.hostID = host.id
	m := r.membership(host)

	r.sendTo(host, models.RoomCreated{
		Type:     models.EventRoomCreated,
		RoomCode: r.code,
		PlayerID: host.id,
		Token:    m.Token,
		Settings: r.settings,
	})
	r.broadcastPlayers()
	r.log.Info().Str("player", host.id).Str("host", name).Bool("playing", host.playing).Msg("🏠 room created")
	return m, nil
}

func (r *Room) join(conn *Conn, name, avatarID string) (Membership, error) {
	if _, ok := r.state.(lobbyState); !ok {
		return Membership{}, ErrGameAlreadyStarted
	}
	if len(r.playing()) >= r.cfg.MaxPlayers {
		return Membership{}, ErrRoomFull
	}
	if err := r.claim(conn); err != nil {
		return Membership{}, err
	}
	p := r.addMember(conn, name, avatarID, true)
	m := r.membership(p)

	r.sendTo(p, models.RoomJoined{
		Type:     models.EventRoomJoined,
		RoomCode: r.code,
		PlayerID: p.id,
		HostID:   r.hostID,
		Token:    m.Token,
		Settings: r.settings,
	})
	r.broadcast(models.PlayerJoined{
		Type:       models.EventPlayerJoined,
		PlayerID:   p.id,
		PlayerName: p.name,
		AvatarID:   p.avatarID,
	})
	r.broadcastPlayers()
	r.log.Info().Str("player", p.id).Str("name", name).Int("players", len(r.playing())).Msg("👋 player joined")
	return m, nil
}

func (r *Room) leave(playerID string) error {
	p := r.member(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	r.removeMember(p, "left")
	return nil
}

// removeMember drops p from the room and applies whatever the departure
// implies for the current phase.
func (r *Room) removeMember(p *player, reason string) {
	r.broadcast(models.PlayerLeft{
		Type:       models.EventPlayerLeft,
		PlayerID:   p.id,
		PlayerName: p.name,
		Reason:     reason,
	})

	for i, m := range r.members {
		if m == p {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	p.stopGrace()
	if p.conn != nil {
		p.conn.unbind(r.code)
		p.conn = nil
	}
	r.touch()
	r.log.Info().Str("player", p.id).Str("reason", reason).Msg("🚪 player left")

	if len(r.members) == 0 {
		if _, lobby := r.state.(lobbyState); !lobby {
			r.finish("empty")
		}
		r.close()
		return
	}

	switch r.state.(type) {
	case lobbyState:
		if p.id == r.hostID {
			r.hostID = r.members[0].id
			r.log.Info().Str("player", r.hostID).Msg("👑 host promoted")
		}
		r.broadcastPlayers()
	case finishedState:
		r.broadcastPlayers()
	default:
		r.broadcastPlayers()
		if len(r.playing()) == 0 {
			r.finish("empty")
			return
		}
		r.maybeEarlyAdvance()
	}
}

func (r *Room) start(playerID string) error {
	if playerID != r.hostID || r.member(playerID) == nil {
		return ErrNotHost
	}
	if _, ok := r.state.(lobbyState); !ok {
		return ErrGameAlreadyStarted
	}
	players := r.playing()
	if len(players) < 2 {
		return ErrNotEnoughPlayers
	}
	if r.reg.words == nil {
		return ErrNotEnoughWords
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WordFetchTimeout)
	defer cancel()
	want := poolSize(r.settings.TotalQuestionCount, r.settings.OptionCount)
	words, err := r.reg.words.Words(ctx, r.settings.Level, want)
	if err != nil {
		r.log.Error().Err(err).Str("level", r.settings.Level).Msg("⚠️  word lookup failed")
		return fmt.Errorf("fetch words for level %q: %w", r.settings.Level, err)
	}

	gameID := uuid.NewString()
	pool, err := buildQuestions(words, r.settings.TotalQuestionCount, r.settings.OptionCount, newRand(gameID))
	if err != nil {
		r.log.Warn().Err(err).Str("level", r.settings.Level).Msg("⚠️  cannot build question pool")
		return err
	}

	r.pool = pool
	r.gameID = gameID
	r.startedAt = r.clock.Now()
	for _, p := range r.members {
		p.resetForGame()
	}
	r.log.Info().Str("game", gameID).Int("players", len(players)).Msg("🎮 game starting")
	r.enterCountdown()
	return nil
}

func (r *Room) submitAnswer(playerID string, answerIndex *int, answerTime int64) error {
	p := r.member(playerID)
	if p == nil || !p.playing {
		return ErrPlayerNotFound
	}

	var qs questionState
	switch st := r.state.(type) {
	case questionState:
		qs = st
	case revealState, rankingState:
		if p.answered {
			return ErrAlreadyAnswered
		}
		return ErrWrongPhase
	default:
		return ErrWrongPhase
	}

	if p.answered {
		return ErrAlreadyAnswered
	}
	// The deadline timer may still be queued behind this answer.
	if !r.clock.Now().Before(qs.deadlineAt) {
		return ErrWrongPhase
	}
	if answerIndex == nil || *answerIndex < 0 || *answerIndex >= len(qs.question.Options) {
		return ErrInvalidAnswer
	}

	duration := time.Duration(r.settings.QuestionDuration) * time.Second
	elapsed := answerElapsed(r.clock.Now().Sub(qs.startedAt), answerTime, r.cfg.LatencyAllowance)
	correct := *answerIndex == qs.question.CorrectIndex
	points := Points(correct, elapsed, duration, r.cfg.MaxPoints, r.cfg.MinPoints)

	p.answered = true
	p.answer = answerRecord{index: *answerIndex, correct: correct, points: points}
	p.score += points
	if correct {
		p.correctCount++
	}
	r.touch()

	answered, active := 0, 0
	for _, m := range r.playing() {
		if !m.away || m.answered {
			active++
		}
		if m.answered {
			answered++
		}
	}
	r.broadcast(models.PlayerAnswered{
		Type:          models.EventPlayerAnswered,
		PlayerID:      p.id,
		QuestionIndex: qs.index,
		AnsweredCount: answered,
		PlayerCount:   active,
	})
	r.maybeEarlyAdvance()
	return nil
}

func (r *Room) nextQuestion(playerID string) error {
	if playerID != r.hostID || r.member(playerID) == nil {
		return ErrNotHost
	}
	switch r.state.(type) {
	case lobbyState, finishedState:
		return ErrWrongPhase
	}
	r.log.Info().Str("phase", string(r.state.Phase())).Msg("⏭️  host forced advance")
	r.advance()
	return nil
}

func (r *Room) disband(playerID string) error {
	if playerID != r.hostID || r.member(playerID) == nil {
		return ErrNotHost
	}
	if _, ok := r.state.(finishedState); ok {
		return ErrWrongPhase
	}
	r.disbandWith("disbanded")
	return nil
}

func (r *Room) disbandWith(reason string) {
	r.broadcast(models.RoomDisbanded{
		Type:     models.EventRoomDisbanded,
		RoomCode: r.code,
		Reason:   reason,
	})
	r.log.Info().Str("reason", reason).Msg("💥 room disbanded")
	r.close()
}

// detach handles a transport that went away. The member keeps its seat for
// the reconnect grace period, or leaves at once when there is none.
func (r *Room) detach(conn *Conn) {
	var p *player
	for _, m := range r.members {
		if m.conn == conn {
			p = m
			break
		}
	}
	if p == nil {
		return
	}
	conn.unbind(r.code)
	if r.cfg.ReconnectGrace <= 0 {
		p.conn = nil
		r.removeMember(p, "disconnected")
		return
	}

	p.conn = nil
	p.away = true
	p.awayGen++
	gen, id := p.awayGen, p.id
	p.stopGrace()
	p.grace = r.clock.AfterFunc(r.cfg.ReconnectGrace, func() {
		_ = r.do(context.Background(), func() error {
			r.onGraceExpired(id, gen)
			return nil
		})
	})
	r.log.Info().Str("player", id).Dur("grace", r.cfg.ReconnectGrace).Msg("🔌 player disconnected")
	r.broadcastPlayers()
	r.maybeEarlyAdvance()
}

func (r *Room) onGraceExpired(playerID string, gen int) {
	p := r.member(playerID)
	if p == nil || !p.away || p.awayGen != gen {
		return
	}
	p.grace = nil
	r.removeMember(p, "timeout")
}

// resume rebinds a fresh connection to an existing member and replays the
// current state to it.
func (r *Room) resume(conn *Conn, playerID string) (Membership, error) {
	p := r.member(playerID)
	if p == nil {
		return Membership{}, ErrPlayerNotFound
	}
	if !conn.tryBind(r.code) {
		if code, id := conn.Binding(); code != r.code || (id != "" && id != playerID) {
			return Membership{}, ErrAlreadyInRoom
		}
	}
	if old := p.conn; old != nil && old != conn {
		old.unbind(r.code)
		old.Close()
	}
	p.conn = conn
	conn.bind(r.code, p.id)
	p.stopGrace()
	p.away = false
	r.touch()

	m := r.membership(p)
	r.sendTo(p, models.RoomJoined{
		Type:     models.EventRoomJoined,
		RoomCode: r.code,
		PlayerID: p.id,
		HostID:   r.hostID,
		Token:    m.Token,
		Resumed:  true,
		Settings: r.settings,
	})
	r.broadcastPlayers()
	r.replay(p)
	r.log.Info().Str("player", p.id).Str("conn", conn.ID).Msg("🔁 player resumed")
	return m, nil
}

// replay sends p what it needs to render the current phase.
func (r *Room) replay(p *player) {
	if _, lobby := r.state.(lobbyState); lobby {
		return
	}
	r.sendTo(p, r.stateChanged())
	switch st := r.state.(type) {
	case questionState:
		r.sendTo(p, r.questionEvent(st))
	case revealState:
		qs := questionState{index: st.index, question: st.question}
		r.sendTo(p, r.answerResult(p, qs, r.revealResults()))
	case rankingState:
		r.sendTo(p, models.Rankings{
			Type:           models.EventRankings,
			QuestionIndex:  st.index,
			TotalQuestions: len(r.pool),
			Players:        r.rankings(),
		})
	case finishedState:
		final := r.rankings()
		r.sendTo(p, models.GameEnded{
			Type:    models.EventGameEnded,
			Players: final,
			Summary: models.GameSummary{QuestionCount: st.played, PlayerCount: len(final)},
			Reason:  st.reason,
		})
	}
}

func (r *Room) revealResults() []models.AnswerOutcome {
	players := r.playing()
	results := make([]models.AnswerOutcome, 0, len(players))
	for _, p := range players {
		results = append(results, models.AnswerOutcome{
			PlayerID: p.id,
			Answered: p.answered,
			Correct:  p.answer.correct,
			Points:   p.answer.points,
		})
	}
	return results
}

// expire applies the reaper policy and reports what it did.
func (r *Room) expire(now time.Time, finishedTTL, idleTimeout time.Duration) string {
	if fin, ok := r.state.(finishedState); ok {
		if finishedTTL > 0 && now.Sub(fin.at) >= finishedTTL {
			r.close()
			return "finished"
		}
		return ""
	}
	if idleTimeout > 0 && now.Sub(r.lastActivity) >= idleTimeout {
		r.disbandWith("inactive")
		return "idle"
	}
	return ""
}
