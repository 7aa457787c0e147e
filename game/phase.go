package game

import "time"

// Phase is the room's stage in the game.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseCountdown    Phase = "countdown"
	PhaseQuestion     Phase = "question"
	PhaseAnswerReveal Phase = "answerReveal"
	PhaseRanking      Phase = "ranking"
	PhaseFinished     Phase = "finished"
)

// phaseKey identifies one phase instance. Timers carry the key they were
// scheduled for and are dropped when the room has moved on.
type phaseKey struct {
	phase Phase
	index int
}

// phaseState is the room's current phase together with the data only that
// phase has.
type phaseState interface {
	Phase() Phase
	key() phaseKey
	deadline() time.Time // zero when the phase has no timer
}

type lobbyState struct{}

func (lobbyState) Phase() Phase        { return PhaseLobby }
func (lobbyState) key() phaseKey       { return phaseKey{PhaseLobby, -1} }
func (lobbyState) deadline() time.Time { return time.Time{} }

type countdownState struct {
	deadlineAt time.Time
}

func (countdownState) Phase() Phase          { return PhaseCountdown }
func (countdownState) key() phaseKey         { return phaseKey{PhaseCountdown, -1} }
func (s countdownState) deadline() time.Time { return s.deadlineAt }

type questionState struct {
	index      int
	question   *Question
	startedAt  time.Time
	deadlineAt time.Time
}

func (questionState) Phase() Phase          { return PhaseQuestion }
func (s questionState) key() phaseKey       { return phaseKey{PhaseQuestion, s.index} }
func (s questionState) deadline() time.Time { return s.deadlineAt }

type revealState struct {
	index      int
	question   *Question
	deadlineAt time.Time
}

func (revealState) Phase() Phase          { return PhaseAnswerReveal }
func (s revealState) key() phaseKey       { return phaseKey{PhaseAnswerReveal, s.index} }
func (s revealState) deadline() time.Time { return s.deadlineAt }

type rankingState struct {
	index      int
	deadlineAt time.Time
}

func (rankingState) Phase() Phase          { return PhaseRanking }
func (s rankingState) key() phaseKey       { return phaseKey{PhaseRanking, s.index} }
func (s rankingState) deadline() time.Time { return s.deadlineAt }

type finishedState struct {
	reason string
	at     time.Time
	played int
}

func (finishedState) Phase() Phase        { return PhaseFinished }
func (finishedState) key() phaseKey       { return phaseKey{PhaseFinished, -1} }
func (finishedState) deadline() time.Time { return time.Time{} }

// questionIndex reports the index the phase refers to, or -1.
func questionIndex(s phaseState) int {
	switch st := s.(type) {
	case questionState:
		return st.index
	case revealState:
		return st.index
	case rankingState:
		return st.index
	default:
		return -1
	}
}
