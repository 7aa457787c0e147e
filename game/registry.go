package game

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"trainvoc/models"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 10
)

// TokenIssuer signs session tokens handed out with roomCreated and roomJoined.
type TokenIssuer interface {
	Issue(roomCode, playerID string) (string, error)
}

type Options struct {
	Config Config
	Clock  Clock
	Words  WordProvider
	Tokens TokenIssuer
	Logger *zerolog.Logger

	// OnFinished runs on the room goroutine when a started game ends. It must
	// not block.
	OnFinished func(GameResult)
}

// Registry maps room codes to live rooms. The map lock is never held while
// waiting on a room.
type Registry struct {
	cfg        Config
	clock      Clock
	words      WordProvider
	tokens     TokenIssuer
	log        zerolog.Logger
	onFinished func(GameResult)

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry(opts Options) *Registry {
	reg := &Registry{
		cfg:        opts.Config.withDefaults(),
		clock:      opts.Clock,
		words:      opts.Words,
		tokens:     opts.Tokens,
		onFinished: opts.OnFinished,
		rooms:      make(map[string]*Room),
	}
	if reg.clock == nil {
		reg.clock = RealClock
	}
	if opts.Logger != nil {
		reg.log = *opts.Logger
	} else {
		reg.log = log.Logger
	}
	return reg
}

func (reg *Registry) Config() Config { return reg.cfg }

func (reg *Registry) generateCode() (string, error) {
	b := make([]byte, reg.cfg.CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// insert reserves a fresh code for a new room.
func (reg *Registry) insert(settings models.RoomSettings, passwordHash []byte) (*Room, error) {
	for i := 0; i < maxCodeTries; i++ {
		code, err := reg.generateCode()
		if err != nil {
			return nil, err
		}
		reg.mu.Lock()
		if _, taken := reg.rooms[code]; taken {
			reg.mu.Unlock()
			continue
		}
		r := newRoom(reg, code, settings, passwordHash)
		reg.rooms[code] = r
		reg.mu.Unlock()
		return r, nil
	}
	return nil, ErrCodeSpace
}

func (reg *Registry) evict(code string, r *Room) {
	reg.mu.Lock()
	if reg.rooms[code] == r {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()
}

func (reg *Registry) lookup(code string) (*Room, error) {
	reg.mu.RLock()
	r, ok := reg.rooms[code]
	reg.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Create validates the request, allocates a code and seats the host. conn may
// be nil for callers without a realtime connection.
func (reg *Registry) Create(ctx context.Context, conn *Conn, cmd models.CreateCommand) (Membership, error) {
	if err := reg.cfg.ValidateSettings(cmd.Settings); err != nil {
		return Membership{}, err
	}
	name := sanitizeName(cmd.Name, reg.cfg.MaxNameLength)
	if name == "" {
		return Membership{}, fmt.Errorf("%w: name is required", ErrMalformedMessage)
	}
	if conn != nil {
		if code, _ := conn.Binding(); code != "" {
			return Membership{}, ErrAlreadyInRoom
		}
	}

	var hash []byte
	if cmd.HashedPassword != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword(passwordKey(cmd.HashedPassword), bcrypt.DefaultCost)
		if err != nil {
			return Membership{}, fmt.Errorf("hash room password: %w", err)
		}
	}

	settings := cmd.Settings
	settings.Level = strings.TrimSpace(settings.Level)
	r, err := reg.insert(settings, hash)
	if err != nil {
		return Membership{}, err
	}
	go r.run()

	var m Membership
	err = r.do(ctx, func() error {
		if err := ctx.Err(); err != nil {
			r.close()
			return err
		}
		var err error
		m, err = r.create(conn, name, sanitizeAvatar(cmd.AvatarID, reg.cfg.MaxAvatarLength))
		if err != nil {
			r.close()
		}
		return err
	})
	if err != nil && !errors.Is(err, ErrAlreadyInRoom) {
		// The caller gave up before the host was seated.
		go r.do(context.Background(), func() error {
			if len(r.members) == 0 {
				r.close()
			}
			return nil
		})
	}
	return m, err
}

// passwordKey digests a room password so that bcrypt's 72 byte input limit
// never applies.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// Join seats a new player. Unknown code and wrong password are distinct
// errors here; callers that face clients should not tell them apart.
func (reg *Registry) Join(ctx context.Context, conn *Conn, cmd models.JoinCommand) (Membership, error) {
	name := sanitizeName(cmd.Name, reg.cfg.MaxNameLength)
	if name == "" {
		return Membership{}, fmt.Errorf("%w: name is required", ErrMalformedMessage)
	}
	r, err := reg.lookup(normalizeCode(cmd.RoomCode))
	if err != nil {
		return Membership{}, err
	}
	if len(r.passwordHash) > 0 {
		if bcrypt.CompareHashAndPassword(r.passwordHash, passwordKey(cmd.Password)) != nil {
			return Membership{}, ErrWrongPassword
		}
	}

	var m Membership
	err = r.do(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		m, err = r.join(conn, name, sanitizeAvatar(cmd.AvatarID, reg.cfg.MaxAvatarLength))
		return err
	})
	return m, err
}

func (reg *Registry) withRoom(ctx context.Context, code string, fn func(r *Room) error) error {
	r, err := reg.lookup(normalizeCode(code))
	if err != nil {
		return err
	}
	return r.do(ctx, func() error { return fn(r) })
}

func (reg *Registry) Leave(ctx context.Context, code, playerID string) error {
	return reg.withRoom(ctx, code, func(r *Room) error { return r.leave(playerID) })
}

func (reg *Registry) Start(ctx context.Context, code, playerID string) error {
	return reg.withRoom(ctx, code, func(r *Room) error { return r.start(playerID) })
}

func (reg *Registry) SubmitAnswer(ctx context.Context, code, playerID string, answerIndex *int, answerTime int64) error {
	return reg.withRoom(ctx, code, func(r *Room) error {
		return r.submitAnswer(playerID, answerIndex, answerTime)
	})
}

func (reg *Registry) NextQuestion(ctx context.Context, code, playerID string) error {
	return reg.withRoom(ctx, code, func(r *Room) error { return r.nextQuestion(playerID) })
}

func (reg *Registry) Disband(ctx context.Context, code, playerID string) error {
	return reg.withRoom(ctx, code, func(r *Room) error { return r.disband(playerID) })
}

// Remove disbands a room regardless of who asks, telling members why.
func (reg *Registry) Remove(ctx context.Context, code, reason string) error {
	return reg.withRoom(ctx, code, func(r *Room) error {
		r.disbandWith(reason)
		return nil
	})
}

// Get returns the last published summary of a room.
func (reg *Registry) Get(code string) (RoomSummary, error) {
	r, err := reg.lookup(normalizeCode(code))
	if err != nil {
		return RoomSummary{}, err
	}
	return r.Summary(), nil
}

// List returns summaries of all live rooms, oldest first.
func (reg *Registry) List() []RoomSummary {
	reg.mu.RLock()
	out := make([]RoomSummary, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r.Summary())
	}
	reg.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

func (reg *Registry) Players(ctx context.Context, code string) ([]models.PlayerInfo, error) {
	var infos []models.PlayerInfo
	err := reg.withRoom(ctx, code, func(r *Room) error {
		infos = r.playerInfos()
		return nil
	})
	return infos, err
}

func (reg *Registry) State(ctx context.Context, code string) (GameState, error) {
	var gs GameState
	err := reg.withRoom(ctx, code, func(r *Room) error {
		gs = r.gameState()
		return nil
	})
	return gs, err
}

// Disconnect tells the room bound to conn that its transport is gone.
func (reg *Registry) Disconnect(ctx context.Context, conn *Conn) {
	code, _ := conn.Binding()
	if code == "" {
		return
	}
	err := reg.withRoom(ctx, code, func(r *Room) error {
		r.detach(conn)
		return nil
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		reg.log.Warn().Err(err).Str("room", code).Str("conn", conn.ID).Msg("⚠️  disconnect not applied")
	}
}

// Resume rebinds conn to an existing member after a reconnect.
func (reg *Registry) Resume(ctx context.Context, conn *Conn, code, playerID string) (Membership, error) {
	var m Membership
	err := reg.withRoom(ctx, code, func(r *Room) error {
		var err error
		m, err = r.resume(conn, playerID)
		return err
	})
	return m, err
}

// ReapStats counts what one reaper pass removed.
type ReapStats struct {
	Finished int `json:"finished"`
	Idle     int `json:"idle"`
}

// Reap evicts rooms that finished more than finishedTTL ago and disbands rooms
// with no activity for idleTimeout.
func (reg *Registry) Reap(ctx context.Context, finishedTTL, idleTimeout time.Duration) ReapStats {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	var stats ReapStats
	now := reg.clock.Now()
	for _, r := range rooms {
		var what string
		err := r.do(ctx, func() error {
			what = r.expire(now, finishedTTL, idleTimeout)
			return nil
		})
		if err != nil {
			continue
		}
		switch what {
		case "finished":
			stats.Finished++
		case "idle":
			stats.Idle++
		}
	}
	return stats
}

// Shutdown disbands every room.
func (reg *Registry) Shutdown(ctx context.Context) {
	reg.mu.RLock()
	codes := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		codes = append(codes, code)
	}
	reg.mu.RUnlock()
	for _, code := range codes {
		_ = reg.Remove(ctx, code, "shutdown")
	}
}
