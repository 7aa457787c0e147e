package game

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainvoc/models"
)

func startedRoom(t *testing.T, f *fixture, names ...string) (string, []*Conn, []Membership) {
	t.Helper()
	hostConn, host := f.create(t, "Host", defaultSettings())
	conns := []*Conn{hostConn}
	members := []Membership{host}
	for _, name := range names {
		c, m := f.join(t, host.RoomCode, name)
		conns = append(conns, c)
		members = append(members, m)
	}
	require.NoError(t, f.reg.Start(context.Background(), host.RoomCode, host.PlayerID))
	f.clock.Advance(3 * time.Second)
	for _, c := range conns {
		drain(c)
	}
	return host.RoomCode, conns, members
}

func TestConcurrentCreatesGetUniqueCodes(t *testing.T) {
	f := newFixture(t)
	const n = 200

	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := f.reg.Create(context.Background(), nil, models.CreateCommand{Name: "host", Settings: defaultSettings()})
			if assert.NoError(t, err) {
				codes[i] = m.RoomCode
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.Equal(t, n, f.reg.Count())
	assert.Len(t, f.reg.List(), n)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*models.RoomSettings)
	}{
		{"duration too short", func(s *models.RoomSettings) { s.QuestionDuration = 4 }},
		{"duration too long", func(s *models.RoomSettings) { s.QuestionDuration = 121 }},
		{"one option", func(s *models.RoomSettings) { s.OptionCount = 1 }},
		{"too many options", func(s *models.RoomSettings) { s.OptionCount = 7 }},
		{"no questions", func(s *models.RoomSettings) { s.TotalQuestionCount = 0 }},
		{"too many questions", func(s *models.RoomSettings) { s.TotalQuestionCount = 51 }},
		{"blank level", func(s *models.RoomSettings) { s.Level = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.mutate(&s)
			_, err := f.reg.Create(context.Background(), nil, models.CreateCommand{Name: "host", Settings: s})
			assert.ErrorIs(t, err, ErrInvalidSettings)
			assert.Equal(t, "InvalidSettings", Code(err))
		})
	}
	assert.Zero(t, f.reg.Count())
}

func TestCreateSanitizesIdentity(t *testing.T) {
	f := newFixture(t)
	long := "  Alexandria-the-Magnificent-of-Somewhere  "
	_, m := f.create(t, long, defaultSettings())
	players, err := f.reg.Players(context.Background(), m.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, "Alexandria-the-Magnifice", players[0].Name)

	_, err = f.reg.Create(context.Background(), nil, models.CreateCommand{Name: " \t ", Settings: defaultSettings()})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestSpectatorHost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := defaultSettings()
	s.HostWantsToJoin = false
	hostConn, host := f.create(t, "Host", s)

	summary, err := f.reg.Get(host.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PlayerCount)

	_, bob := f.join(t, host.RoomCode, "Bob")
	assert.ErrorIs(t, f.reg.Start(ctx, host.RoomCode, host.PlayerID), ErrNotEnoughPlayers)

	// The last player leaving does not close a room the host still watches.
	require.NoError(t, f.reg.Leave(ctx, host.RoomCode, bob.PlayerID))
	assert.Equal(t, PhaseLobby, f.phase(t, host.RoomCode))

	f.join(t, host.RoomCode, "Carol")
	f.join(t, host.RoomCode, "Dan")
	require.NoError(t, f.reg.Start(ctx, host.RoomCode, host.PlayerID))
	f.clock.Advance(3 * time.Second)

	events := drain(hostConn)
	assert.Len(t, ofType[models.Question](events), 1, "spectator still sees questions")
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, host.RoomCode, host.PlayerID, intPtr(0), 0), ErrPlayerNotFound)
}

func TestJoinErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: "NOPE00", Name: "Bob"})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	t.Run("wrong password", func(t *testing.T) {
		m, err := f.reg.Create(ctx, nil, models.CreateCommand{Name: "host", HashedPassword: "s3cret", Settings: defaultSettings()})
		require.NoError(t, err)

		summary, err := f.reg.Get(m.RoomCode)
		require.NoError(t, err)
		assert.True(t, summary.HasPassword)

		_, err = f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: m.RoomCode, Name: "Bob", Password: "guess"})
		assert.ErrorIs(t, err, ErrWrongPassword)

		_, err = f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: m.RoomCode, Name: "Bob", Password: "s3cret"})
		assert.NoError(t, err)
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		long := strings.Repeat("p", 128)
		m, err := f.reg.Create(ctx, nil, models.CreateCommand{Name: "host", HashedPassword: long, Settings: defaultSettings()})
		require.NoError(t, err)

		for _, tc := range []struct {
			name     string
			password string
			wantErr  error
		}{
			{"same prefix", long[:72] + strings.Repeat("q", 56), ErrWrongPassword},
			{"truncated", long[:72], ErrWrongPassword},
			{"exact", long, nil},
		} {
			_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: m.RoomCode, Name: "Bob", Password: tc.password})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr, tc.name)
			} else {
				assert.NoError(t, err, tc.name)
			}
		}
	})

	t.Run("room full", func(t *testing.T) {
		_, m := f.create(t, "host", defaultSettings())
		for i := 0; i < 7; i++ {
			_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: m.RoomCode, Name: "p"})
			require.NoError(t, err)
		}
		_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: m.RoomCode, Name: "late"})
		assert.ErrorIs(t, err, ErrRoomFull)
	})

	t.Run("game already started", func(t *testing.T) {
		code, _, _ := startedRoom(t, f, "Bob")
		_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: code, Name: "late"})
		assert.ErrorIs(t, err, ErrGameAlreadyStarted)
	})

	t.Run("lower case code", func(t *testing.T) {
		_, m := f.create(t, "host", defaultSettings())
		_, err := f.reg.Join(ctx, nil, models.JoinCommand{RoomCode: " " + lower(m.RoomCode), Name: "Bob"})
		assert.NoError(t, err)
	})

	t.Run("connection already in a room", func(t *testing.T) {
		conn, _ := f.create(t, "host", defaultSettings())
		_, other := f.create(t, "other", defaultSettings())
		_, err := f.reg.Join(ctx, conn, models.JoinCommand{RoomCode: other.RoomCode, Name: "Bob"})
		assert.ErrorIs(t, err, ErrAlreadyInRoom)
		_, err = f.reg.Create(ctx, conn, models.CreateCommand{Name: "again", Settings: defaultSettings()})
		assert.ErrorIs(t, err, ErrAlreadyInRoom)
	})
}

func TestCancelledRequestsSeatNobody(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := NewConn(DefaultSendBuffer)
	_, err := f.reg.Create(ctx, conn, models.CreateCommand{Name: "host", Settings: defaultSettings()})
	assert.ErrorIs(t, err, context.Canceled)
	code, _ := conn.Binding()
	assert.Empty(t, code)
	assert.Eventually(t, func() bool { return f.reg.Count() == 0 }, time.Second, 5*time.Millisecond)

	_, host := f.create(t, "host", defaultSettings())
	late := NewConn(DefaultSendBuffer)
	_, err = f.reg.Join(ctx, late, models.JoinCommand{RoomCode: host.RoomCode, Name: "Bob"})
	assert.ErrorIs(t, err, context.Canceled)
	code, _ = late.Binding()
	assert.Empty(t, code)

	players, err := f.reg.Players(context.Background(), host.RoomCode)
	require.NoError(t, err)
	assert.Len(t, players, 1)

	// The connection is still free for a real attempt.
	_, err = f.reg.Create(context.Background(), conn, models.CreateCommand{Name: "host", Settings: defaultSettings()})
	assert.NoError(t, err)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestHostOnlyCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, host := f.create(t, "Host", defaultSettings())
	_, bob := f.join(t, host.RoomCode, "Bob")

	assert.ErrorIs(t, f.reg.Start(ctx, host.RoomCode, bob.PlayerID), ErrNotHost)
	assert.ErrorIs(t, f.reg.Disband(ctx, host.RoomCode, bob.PlayerID), ErrNotHost)
	assert.ErrorIs(t, f.reg.NextQuestion(ctx, host.RoomCode, bob.PlayerID), ErrNotHost)
	assert.ErrorIs(t, f.reg.NextQuestion(ctx, host.RoomCode, host.PlayerID), ErrWrongPhase)
	assert.Equal(t, PhaseLobby, f.phase(t, host.RoomCode))
}

func TestStartWithoutEnoughWords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) {
		o.Words = staticWords{"A1": vocabulary(3)}
	})
	_, host := f.create(t, "Host", defaultSettings())
	f.join(t, host.RoomCode, "Bob")

	err := f.reg.Start(ctx, host.RoomCode, host.PlayerID)
	assert.ErrorIs(t, err, ErrNotEnoughWords)
	assert.Equal(t, PhaseLobby, f.phase(t, host.RoomCode))
}

func TestAnswerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, _, m := startedRoom(t, f, "Bob", "Carol")
	_, q := f.currentQuestion(t, code)

	require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(q.CorrectIndex), 0))
	err := f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(q.CorrectIndex), 0)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	players, err := f.reg.Players(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1000, players[1].Score)
	assert.Equal(t, 1, players[1].CorrectCount)
}

func TestAnswerValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, _, m := startedRoom(t, f, "Bob")

	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, nil, 0), ErrInvalidAnswer)
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(4), 0), ErrInvalidAnswer)
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(-1), 0), ErrInvalidAnswer)
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, code, "ghost", intPtr(0), 0), ErrPlayerNotFound)

	// A rejected answer leaves the player free to answer.
	assert.NoError(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(0), 0))
}

func TestAnswerAtDeadlineIsLate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, _, m := startedRoom(t, f, "Bob")
	_, q := f.currentQuestion(t, code)

	// Time is up but the expiry has not been handled yet.
	f.inspect(t, code, func(r *Room) {
		st := r.state.(questionState)
		st.deadlineAt = r.clock.Now()
		r.state = st
	})

	err := f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(q.CorrectIndex), 0)
	assert.ErrorIs(t, err, ErrWrongPhase)

	players, err := f.reg.Players(ctx, code)
	require.NoError(t, err)
	assert.Zero(t, players[1].Score)
	assert.Equal(t, PhaseQuestion, f.phase(t, code))
}

func TestAnswerOutsideQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, host := f.create(t, "Host", defaultSettings())
	f.join(t, host.RoomCode, "Bob")
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, host.RoomCode, host.PlayerID, intPtr(0), 0), ErrWrongPhase)

	require.NoError(t, f.reg.Start(ctx, host.RoomCode, host.PlayerID))
	assert.ErrorIs(t, f.reg.SubmitAnswer(ctx, host.RoomCode, host.PlayerID, intPtr(0), 0), ErrWrongPhase)
}

func TestEarlyAdvanceDropsStaleTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, conns, m := startedRoom(t, f, "Bob")
	_, q := f.currentQuestion(t, code)

	require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[0].PlayerID, intPtr(q.CorrectIndex), 0))
	require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(q.CorrectIndex), 0))
	require.Equal(t, PhaseAnswerReveal, f.phase(t, code))
	drain(conns[0])

	// A firing for the question instance the room already left changes nothing.
	r := f.room(t, code)
	f.inspect(t, code, func(r *Room) { r.onTimer(phaseKey{PhaseQuestion, 0}) })
	f.inspect(t, code, func(r *Room) { r.onTimer(phaseKey{PhaseCountdown, -1}) })
	assert.Equal(t, PhaseAnswerReveal, f.phase(t, code))
	assert.Empty(t, drain(conns[0]))
	assert.Equal(t, 0, r.Summary().QuestionIndex)

	// The live reveal timer still advances.
	f.clock.Advance(3 * time.Second)
	assert.Equal(t, PhaseRanking, f.phase(t, code))
}

func TestQuestionTimerRevealsWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	code, conns, _ := startedRoom(t, f, "Bob")

	f.clock.Advance(29 * time.Second)
	assert.Equal(t, PhaseQuestion, f.phase(t, code))
	f.clock.Advance(time.Second)
	assert.Equal(t, PhaseAnswerReveal, f.phase(t, code))

	results := ofType[models.AnswerResult](drain(conns[1]))
	require.Len(t, results, 1)
	assert.False(t, results[0].Correct)
	assert.Zero(t, results[0].Points)
}

func TestQuestionIndexIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := defaultSettings()
	s.TotalQuestionCount = 3
	_, host := f.create(t, "Host", s)
	f.join(t, host.RoomCode, "Bob")
	require.NoError(t, f.reg.Start(ctx, host.RoomCode, host.PlayerID))

	var seen []int
	for f.phase(t, host.RoomCode) != PhaseFinished {
		require.NoError(t, f.reg.NextQuestion(ctx, host.RoomCode, host.PlayerID))
		summary, err := f.reg.Get(host.RoomCode)
		require.NoError(t, err)
		assert.LessOrEqual(t, summary.QuestionIndex, summary.TotalQuestions)
		if summary.Phase == PhaseQuestion {
			seen = append(seen, summary.QuestionIndex)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.ErrorIs(t, f.reg.NextQuestion(ctx, host.RoomCode, host.PlayerID), ErrWrongPhase)
}

func TestHostLeavesLobby(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hostConn, host := f.create(t, "Host", defaultSettings())
	bobConn, bob := f.join(t, host.RoomCode, "Bob")
	f.join(t, host.RoomCode, "Carol")
	drain(bobConn)

	require.NoError(t, f.reg.Leave(ctx, host.RoomCode, host.PlayerID))
	summary, err := f.reg.Get(host.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, bob.PlayerID, summary.HostID)

	code, _ := hostConn.Binding()
	assert.Empty(t, code, "leaving frees the connection")

	updates := ofType[models.PlayersUpdate](drain(bobConn))
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, bob.PlayerID, last.HostID)
	assert.True(t, last.Players[0].IsHost)

	assert.NoError(t, f.reg.Start(ctx, host.RoomCode, bob.PlayerID))
}

func TestLastMemberLeavingRemovesRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, host := f.create(t, "Host", defaultSettings())
	require.NoError(t, f.reg.Leave(ctx, host.RoomCode, host.PlayerID))

	_, err := f.reg.Get(host.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, f.reg.Leave(ctx, host.RoomCode, host.PlayerID), ErrRoomNotFound)
}

func TestLeavingMidGame(t *testing.T) {
	ctx := context.Background()

	t.Run("completes answered coverage", func(t *testing.T) {
		f := newFixture(t)
		code, _, m := startedRoom(t, f, "Bob", "Carol")
		_, q := f.currentQuestion(t, code)
		require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[0].PlayerID, intPtr(q.CorrectIndex), 0))
		require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[1].PlayerID, intPtr(q.CorrectIndex), 0))
		assert.Equal(t, PhaseQuestion, f.phase(t, code))

		require.NoError(t, f.reg.Leave(ctx, code, m[2].PlayerID))
		assert.Equal(t, PhaseAnswerReveal, f.phase(t, code))
	})

	t.Run("host leaving does not stop the game", func(t *testing.T) {
		f := newFixture(t)
		code, _, m := startedRoom(t, f, "Bob", "Carol")
		require.NoError(t, f.reg.Leave(ctx, code, m[0].PlayerID))
		summary, err := f.reg.Get(code)
		require.NoError(t, err)
		assert.Equal(t, PhaseQuestion, summary.Phase)
		assert.Equal(t, m[0].PlayerID, summary.HostID)
	})

	t.Run("spectator host sees the game end when everyone leaves", func(t *testing.T) {
		f := newFixture(t)
		s := defaultSettings()
		s.HostWantsToJoin = false
		hostConn, host := f.create(t, "Host", s)
		_, bob := f.join(t, host.RoomCode, "Bob")
		_, carol := f.join(t, host.RoomCode, "Carol")
		require.NoError(t, f.reg.Start(ctx, host.RoomCode, host.PlayerID))
		f.clock.Advance(3 * time.Second)
		drain(hostConn)

		require.NoError(t, f.reg.Leave(ctx, host.RoomCode, bob.PlayerID))
		require.NoError(t, f.reg.Leave(ctx, host.RoomCode, carol.PlayerID))
		assert.Equal(t, PhaseFinished, f.phase(t, host.RoomCode))

		ended := ofType[models.GameEnded](drain(hostConn))
		require.Len(t, ended, 1)
		assert.Equal(t, "empty", ended[0].Reason)
		assert.Equal(t, 0, f.clock.Pending())
	})

	t.Run("everyone leaving removes the room", func(t *testing.T) {
		var results []GameResult
		f := newFixture(t, func(o *Options) {
			o.OnFinished = func(r GameResult) { results = append(results, r) }
		})
		code, _, m := startedRoom(t, f, "Bob")
		require.NoError(t, f.reg.Leave(ctx, code, m[0].PlayerID))
		require.NoError(t, f.reg.Leave(ctx, code, m[1].PlayerID))

		_, err := f.reg.Get(code)
		assert.ErrorIs(t, err, ErrRoomNotFound)
		require.Len(t, results, 1)
		assert.Equal(t, "empty", results[0].Reason)
		assert.Equal(t, 1, results[0].QuestionCount)
	})
}

func TestDisband(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, conns, m := startedRoom(t, f, "Bob")

	require.NoError(t, f.reg.Disband(ctx, code, m[0].PlayerID))
	for _, c := range conns {
		disbanded := ofType[models.RoomDisbanded](drain(c))
		require.Len(t, disbanded, 1)
		assert.Equal(t, "disbanded", disbanded[0].Reason)
		bound, _ := c.Binding()
		assert.Empty(t, bound)
	}
	_, err := f.reg.Get(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, f.clock.Pending())
}

func TestSlowConnectionIsDropped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hostConn, host := f.create(t, "Host", defaultSettings())

	slow := NewConn(2)
	slowMember, err := f.reg.Join(ctx, slow, models.JoinCommand{RoomCode: host.RoomCode, Name: "Slow"})
	require.NoError(t, err)
	f.join(t, host.RoomCode, "Carol")

	players, err := f.reg.Players(ctx, host.RoomCode)
	require.NoError(t, err)
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	assert.NotContains(t, ids, slowMember.PlayerID)
	assert.True(t, slow.Closed())

	left := ofType[models.PlayerLeft](drain(hostConn))
	require.NotEmpty(t, left)
	assert.Equal(t, "connectionLost", left[0].Reason)
}

func TestDisconnectAndResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code, conns, m := startedRoom(t, f, "Bob")
	_, q := f.currentQuestion(t, code)

	// Bob drops; Alice answering alone now reveals early.
	f.reg.Disconnect(ctx, conns[1])
	players, err := f.reg.Players(ctx, code)
	require.NoError(t, err)
	assert.False(t, players[1].Connected)

	require.NoError(t, f.reg.SubmitAnswer(ctx, code, m[0].PlayerID, intPtr(q.CorrectIndex), 0))
	assert.Equal(t, PhaseAnswerReveal, f.phase(t, code))

	// Bob comes back on a new connection before the grace runs out.
	f.clock.Advance(2 * time.Second)
	fresh := NewConn(DefaultSendBuffer)
	resumed, err := f.reg.Resume(ctx, fresh, code, m[1].PlayerID)
	require.NoError(t, err)
	assert.Equal(t, m[1].PlayerID, resumed.PlayerID)
	assert.NotEqual(t, conns[1].ID, fresh.ID)

	events := drain(fresh)
	require.GreaterOrEqual(t, len(events), 3)
	joined, ok := events[0].(models.RoomJoined)
	require.True(t, ok)
	assert.True(t, joined.Resumed)
	assert.Len(t, ofType[models.AnswerResult](events), 1)

	// The stale grace timer has been cancelled.
	f.clock.Advance(20 * time.Second)
	players, err = f.reg.Players(ctx, code)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.True(t, players[1].Connected)
}

func TestDisconnectGraceExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hostConn, host := f.create(t, "Host", defaultSettings())
	bobConn, bob := f.join(t, host.RoomCode, "Bob")
	drain(hostConn)

	f.reg.Disconnect(ctx, bobConn)
	f.clock.Advance(10 * time.Second)

	left := ofType[models.PlayerLeft](drain(hostConn))
	require.Len(t, left, 1)
	assert.Equal(t, bob.PlayerID, left[0].PlayerID)
	assert.Equal(t, "timeout", left[0].Reason)

	_, err := f.reg.Resume(ctx, NewConn(0), host.RoomCode, bob.PlayerID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestClosedConnectionKeepsSeatForGrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hostConn, host := f.create(t, "Host", defaultSettings())
	bobConn, bob := f.join(t, host.RoomCode, "Bob")
	drain(hostConn)

	// The transport closes Bob's queue before it reports the disconnect, and
	// Carol's arrival is broadcast in between.
	bobConn.Close()
	f.join(t, host.RoomCode, "Carol")
	f.reg.Disconnect(ctx, bobConn)

	players, err := f.reg.Players(ctx, host.RoomCode)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, bob.PlayerID, players[1].ID)
	assert.False(t, players[1].Connected)
	assert.Empty(t, ofType[models.PlayerLeft](drain(hostConn)))

	f.clock.Advance(10 * time.Second)
	left := ofType[models.PlayerLeft](drain(hostConn))
	require.Len(t, left, 1)
	assert.Equal(t, bob.PlayerID, left[0].PlayerID)
	assert.Equal(t, "timeout", left[0].Reason)
}

func TestDisconnectWithoutGrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.Config.ReconnectGrace = 0 })
	require.Equal(t, 10*time.Second, f.reg.Config().ReconnectGrace, "zero means default")

	f = newFixture(t, func(o *Options) { o.Config.ReconnectGrace = -1 })
	hostConn, host := f.create(t, "Host", defaultSettings())
	f.reg.Disconnect(ctx, hostConn)

	_, err := f.reg.Get(host.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestReap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	idleConn, idle := f.create(t, "Idle", defaultSettings())
	drain(idleConn)

	s := defaultSettings()
	s.TotalQuestionCount = 1
	_, done := f.create(t, "Done", s)
	f.join(t, done.RoomCode, "Bob")
	require.NoError(t, f.reg.Start(ctx, done.RoomCode, done.PlayerID))
	for f.phase(t, done.RoomCode) != PhaseFinished {
		require.NoError(t, f.reg.NextQuestion(ctx, done.RoomCode, done.PlayerID))
	}

	stats := f.reg.Reap(ctx, 2*time.Minute, 30*time.Minute)
	assert.Equal(t, ReapStats{}, stats)

	f.clock.Advance(3 * time.Minute)
	stats = f.reg.Reap(ctx, 2*time.Minute, 30*time.Minute)
	assert.Equal(t, ReapStats{Finished: 1}, stats)

	f.clock.Advance(30 * time.Minute)
	stats = f.reg.Reap(ctx, 2*time.Minute, 30*time.Minute)
	assert.Equal(t, ReapStats{Idle: 1}, stats)

	disbanded := ofType[models.RoomDisbanded](drain(idleConn))
	require.Len(t, disbanded, 1)
	assert.Equal(t, "inactive", disbanded[0].Reason)
	_, err := f.reg.Get(idle.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Zero(t, f.reg.Count())
}
