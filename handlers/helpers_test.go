package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"trainvoc/game"
	"trainvoc/middleware"
	"trainvoc/models"
)

type staticWords []game.Word

func (s staticWords) Words(_ context.Context, _ string, n int) ([]game.Word, error) {
	if len(s) > n {
		return s[:n], nil
	}
	return s, nil
}

func (s staticWords) Levels(context.Context) (map[string]int, error) {
	return map[string]int{"A1": len(s)}, nil
}

func vocabulary(n int) staticWords {
	words := make(staticWords, n)
	for i := range words {
		words[i] = game.Word{Term: fmt.Sprintf("term-%02d", i), Translation: fmt.Sprintf("answer-%02d", i)}
	}
	return words
}

type env struct {
	reg    *game.Registry
	clock  *game.FakeClock
	tokens *middleware.SessionTokens
	app    *fiber.App
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := game.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	tokens := middleware.NewSessionTokens("test-secret", time.Hour)
	nop := zerolog.Nop()
	reg := game.NewRegistry(game.Options{
		Clock:  clock,
		Words:  vocabulary(40),
		Tokens: tokens,
		Logger: &nop,
	})
	app := NewApp(AppConfig{
		Registry:  reg,
		Tokens:    tokens,
		Words:     vocabulary(40),
		PublicURL: "https://trainvoc.example/",
	})
	t.Cleanup(func() { reg.Shutdown(context.Background()) })
	return &env{reg: reg, clock: clock, tokens: tokens, app: app}
}

func settings() models.RoomSettings {
	return models.RoomSettings{
		QuestionDuration:   20,
		OptionCount:        4,
		Level:              "A1",
		TotalQuestionCount: 3,
		HostWantsToJoin:    true,
	}
}

// request performs an HTTP call against the app and decodes a JSON body.
func (e *env) request(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// drain returns every event queued on conn without waiting.
func drain(conn *game.Conn) []models.Event {
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
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func lastError(t *testing.T, conn *game.Conn) models.Error {
	t.Helper()
	errs := ofType[models.Error](drain(conn))
	require.NotEmpty(t, errs, "expected an error event")
	return errs[len(errs)-1]
}
