package game

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"trainvoc/models"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type staticWords map[string][]Word

func (s staticWords) Words(_ context.Context, level string, n int) ([]Word, error) {
	words := s[level]
	if len(words) > n {
		words = words[:n]
	}
	out := make([]Word, len(words))
	copy(out, words)
	return out, nil
}

func vocabulary(n int) []Word {
	words := make([]Word, n)
	for i := range words {
		words[i] = Word{Term: fmt.Sprintf("term-%02d", i), Translation: fmt.Sprintf("answer-%02d", i)}
	}
	return words
}

type fixture struct {
	reg   *Registry
	clock *FakeClock
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	clock := NewFakeClock(testStart)
	logger := zerolog.Nop()
	opts := Options{
		Clock:  clock,
		Words:  staticWords{"A1": vocabulary(40)},
		Logger: &logger,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &fixture{reg: NewRegistry(opts), clock: clock}
}

func defaultSettings() models.RoomSettings {
	return models.RoomSettings{
		QuestionDuration:   30,
		OptionCount:        4,
		Level:              "A1",
		TotalQuestionCount: 10,
		HostWantsToJoin:    true,
	}
}

func (f *fixture) create(t *testing.T, name string, settings models.RoomSettings) (*Conn, Membership) {
	t.Helper()
	conn := NewConn(DefaultSendBuffer)
	m, err := f.reg.Create(context.Background(), conn, models.CreateCommand{Name: name, AvatarID: "fox", Settings: settings})
	require.NoError(t, err)
	return conn, m
}

func (f *fixture) join(t *testing.T, code, name string) (*Conn, Membership) {
	t.Helper()
	conn := NewConn(DefaultSendBuffer)
	m, err := f.reg.Join(context.Background(), conn, models.JoinCommand{RoomCode: code, Name: name, AvatarID: "owl"})
	require.NoError(t, err)
	return conn, m
}

func (f *fixture) room(t *testing.T, code string) *Room {
	t.Helper()
	r, err := f.reg.lookup(code)
	require.NoError(t, err)
	return r
}

// inspect runs fn on the room goroutine.
func (f *fixture) inspect(t *testing.T, code string, fn func(r *Room)) {
	t.Helper()
	require.NoError(t, f.reg.withRoom(context.Background(), code, func(r *Room) error {
		fn(r)
		return nil
	}))
}

func (f *fixture) phase(t *testing.T, code string) Phase {
	var p Phase
	f.inspect(t, code, func(r *Room) { p = r.state.Phase() })
	return p
}

func (f *fixture) currentQuestion(t *testing.T, code string) (int, *Question) {
	var (
		st    questionState
		ok    bool
		phase Phase
	)
	f.inspect(t, code, func(r *Room) {
		st, ok = r.state.(questionState)
		phase = r.state.Phase()
	})
	require.True(t, ok, "room is in %s", phase)
	return st.index, st.question
}

func drain(conn *Conn) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-conn.Outbound():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofType[T models.Event](events []models.Event) []T {
	var out []T
	for _, ev := range events {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func types(events []models.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.EventType()
	}
	return out
}

func intPtr(i int) *int { return &i }

func wrongIndex(q *Question) int {
	return (q.CorrectIndex + 1) % len(q.Options)
}
