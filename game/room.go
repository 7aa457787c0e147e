package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"trainvoc/models"
)

const inboxSize = 64

// Room is one game instance. All of its state is owned by a single goroutine
// that drains inbox; commands and timer firings reach it as closures, so two
// mutations never interleave and every member sees broadcasts in the order
// they were applied.
type Room struct {
	code         string
	passwordHash []byte // immutable, read outside the loop for join checks
	reg          *Registry
	cfg          Config
	clock        Clock
	log          zerolog.Logger

	inbox    chan func()
	quit     chan struct{}
	quitOnce sync.Once

	summary atomic.Pointer[RoomSummary]

	// Loop-owned state below.
	settings     models.RoomSettings
	hostID       string
	members      []*player
	joinSeq      int
	state        phaseState
	pool         []*Question
	timer        Timer
	gameID       string
	startedAt    time.Time
	createdAt    time.Time
	lastActivity time.Time
	failed       []string // queue full: removed at once
	dropped      []*Conn  // closed by the transport: detached with grace
	closed       bool
}

func newRoom(reg *Registry, code string, settings models.RoomSettings, passwordHash []byte) *Room {
	now := reg.clock.Now()
	r := &Room{
		code:         code,
		passwordHash: passwordHash,
		reg:          reg,
		cfg:          reg.cfg,
		clock:        reg.clock,
		log:          reg.log.With().Str("room", code).Logger(),
		inbox:        make(chan func(), inboxSize),
		quit:         make(chan struct{}),
		settings:     settings,
		state:        lobbyState{},
		createdAt:    now,
		lastActivity: now,
	}
	r.publish()
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) run() {
	for {
		select {
		case task := <-r.inbox:
			task()
			if r.closed {
				r.quitOnce.Do(func() { close(r.quit) })
				return
			}
		case <-r.quit:
			return
		}
	}
}

// do runs fn on the room goroutine and waits for its result.
func (r *Room) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	task := func() {
		if r.closed {
			done <- ErrRoomNotFound
			return
		}
		err := fn()
		r.dropFailed()
		if !r.closed {
			r.publish()
		}
		done <- err
	}

	select {
	case r.inbox <- task:
	case <-r.quit:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-r.quit:
		select {
		case err := <-done:
			return err
		default:
			return ErrRoomNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) touch() {
	r.lastActivity = r.clock.Now()
}

func (r *Room) member(id string) *player {
	for _, p := range r.members {
		if p.id == id {
			return p
		}
	}
	return nil
}

// playing returns the members that take part in scoring, in join order.
func (r *Room) playing() []*player {
	out := make([]*player, 0, len(r.members))
	for _, p := range r.members {
		if p.playing {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) sendTo(p *player, ev models.Event) {
	if p.conn == nil {
		return
	}
	if p.conn.Send(ev) {
		return
	}
	if p.conn.Closed() {
		r.dropped = append(r.dropped, p.conn)
		return
	}
	r.log.Warn().Str("player", p.id).Str("event", ev.EventType()).Msg("📭 send failed, dropping player")
	r.failed = append(r.failed, p.id)
}

// broadcast fans ev out to every member. Sends never block; once the current
// task finishes a member whose queue is full is removed and one whose
// connection was closed is detached.
func (r *Room) broadcast(ev models.Event) {
	for _, p := range r.members {
		r.sendTo(p, ev)
	}
}

func (r *Room) dropFailed() {
	for (len(r.failed) > 0 || len(r.dropped) > 0) && !r.closed {
		if len(r.dropped) > 0 {
			conn := r.dropped[0]
			r.dropped = r.dropped[1:]
			r.detach(conn)
			continue
		}
		id := r.failed[0]
		r.failed = r.failed[1:]
		p := r.member(id)
		if p == nil {
			continue
		}
		if p.conn != nil {
			p.conn.Close()
		}
		r.removeMember(p, "connectionLost")
	}
	r.failed = nil
	r.dropped = nil
}

func (r *Room) playerInfos() []models.PlayerInfo {
	infos := make([]models.PlayerInfo, len(r.members))
	for i, p := range r.members {
		infos[i] = p.info(r.hostID)
	}
	return infos
}

func (r *Room) broadcastPlayers() {
	r.broadcast(models.PlayersUpdate{
		Type:    models.EventPlayersUpdate,
		HostID:  r.hostID,
		Players: r.playerInfos(),
	})
}

func (r *Room) rankings() []models.RankedPlayer {
	players := r.playing()
	standings := make([]Standing, len(players))
	for i, p := range players {
		standings[i] = p.standing()
	}
	return Rank(standings)
}

func (r *Room) token(playerID string) string {
	if r.reg.tokens == nil {
		return ""
	}
	tok, err := r.reg.tokens.Issue(r.code, playerID)
	if err != nil {
		r.log.Error().Err(err).Str("player", playerID).Msg("❌ failed to issue session token")
		return ""
	}
	return tok
}

// close stops every timer, releases all connections and evicts the room from
// the registry. The loop exits after the current task.
func (r *Room) close() {
	if r.closed {
		return
	}
	r.stopTimer()
	for _, p := range r.members {
		p.stopGrace()
		if p.conn != nil {
			p.conn.unbind(r.code)
		}
	}
	r.closed = true
	r.reg.evict(r.code, r)
	r.log.Info().Msg("🗑️  room removed")
}

// RoomSummary is the read-only view used for listings. It never carries the
// password hash.
type RoomSummary struct {
	Code           string              `json:"code"`
	HostID         string              `json:"hostId"`
	HostName       string              `json:"hostName"`
	Phase          Phase               `json:"phase"`
	Settings       models.RoomSettings `json:"settings"`
	PlayerCount    int                 `json:"playerCount"`
	MaxPlayers     int                 `json:"maxPlayers"`
	HasPassword    bool                `json:"hasPassword"`
	QuestionIndex  int                 `json:"questionIndex"`
	TotalQuestions int                 `json:"totalQuestions"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastActivityAt time.Time           `json:"lastActivityAt"`
	FinishedAt     *time.Time          `json:"finishedAt,omitempty"`
}

func (r *Room) publish() {
	s := &RoomSummary{
		Code:           r.code,
		HostID:         r.hostID,
		Phase:          r.state.Phase(),
		Settings:       r.settings,
		PlayerCount:    len(r.playing()),
		MaxPlayers:     r.cfg.MaxPlayers,
		HasPassword:    len(r.passwordHash) > 0,
		QuestionIndex:  questionIndex(r.state),
		TotalQuestions: len(r.pool),
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivity,
	}
	if host := r.member(r.hostID); host != nil {
		s.HostName = host.name
	}
	if fin, ok := r.state.(finishedState); ok {
		at := fin.at
		s.FinishedAt = &at
	}
	r.summary.Store(s)
}

// Summary returns the view published after the last applied task.
func (r *Room) Summary() RoomSummary {
	return *r.summary.Load()
}

// QuestionView is a question as a client may see it. CorrectIndex is only set
// once the answer has been revealed.
type QuestionView struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
}

// GameState is a consistent snapshot of a room's game.
type GameState struct {
	RoomCode       string                `json:"roomCode"`
	Phase          Phase                 `json:"phase"`
	HostID         string                `json:"hostId"`
	QuestionIndex  int                   `json:"questionIndex"`
	TotalQuestions int                   `json:"totalQuestions"`
	RemainingTime  int                   `json:"remainingTime"`
	DeadlineAt     int64                 `json:"deadlineAt,omitempty"`
	Question       *QuestionView         `json:"question,omitempty"`
	Players        []models.PlayerInfo   `json:"players"`
	Rankings       []models.RankedPlayer `json:"rankings,omitempty"`
}

func (r *Room) gameState() GameState {
	gs := GameState{
		RoomCode:       r.code,
		Phase:          r.state.Phase(),
		HostID:         r.hostID,
		QuestionIndex:  questionIndex(r.state),
		TotalQuestions: len(r.pool),
		Players:        r.playerInfos(),
	}
	if dl := r.state.deadline(); !dl.IsZero() {
		gs.RemainingTime = r.remaining(dl)
		gs.DeadlineAt = dl.UnixMilli()
	}
	switch st := r.state.(type) {
	case questionState:
		gs.Question = &QuestionView{Text: st.question.Text(), Options: st.question.Options}
	case revealState:
		idx := st.question.CorrectIndex
		gs.Question = &QuestionView{Text: st.question.Text(), Options: st.question.Options, CorrectIndex: &idx}
	case rankingState, finishedState:
		gs.Rankings = r.rankings()
	}
	return gs
}

func (r *Room) remaining(deadline time.Time) int {
	left := deadline.Sub(r.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
