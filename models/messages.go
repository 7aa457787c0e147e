// models/messages.go - Real-time wire protocol (client <-> server JSON messages)
package models

// Inbound command types
const (
	CmdCreate       = "create"
	CmdJoin         = "join"
	CmdLeave        = "leave"
	CmdStart        = "start"
	CmdAnswer       = "answer"
	CmdSubmitAnswer = "submitAnswer" // alias of CmdAnswer
	CmdNextQuestion = "nextQuestion"
	CmdDisband      = "disband"
	CmdPing         = "ping"
)

// Outbound event types
const (
	EventRoomCreated      = "roomCreated"
	EventRoomJoined       = "roomJoined"
	EventPlayerJoined     = "playerJoined"
	EventPlayerLeft       = "playerLeft"
	EventPlayersUpdate    = "playersUpdate"
	EventGameStateChanged = "gameStateChanged"
	EventQuestion         = "question"
	EventPlayerAnswered   = "playerAnswered"
	EventAnswerResult     = "answerResult"
	EventRankings         = "rankings"
	EventGameEnded        = "gameEnded"
	EventRoomDisbanded    = "roomDisbanded"
	EventError            = "error"
	EventPong             = "pong"
)

// Envelope is decoded first to find out which command a message carries.
type Envelope struct {
	Type string `json:"type"`
}

// RoomSettings is fixed when the room is created.
type RoomSettings struct {
	QuestionDuration   int    `json:"questionDuration"` // seconds
	OptionCount        int    `json:"optionCount"`
	Level              string `json:"level"`
	TotalQuestionCount int    `json:"totalQuestionCount"`
	HostWantsToJoin    bool   `json:"hostWantsToJoin"`
}

type CreateCommand struct {
	Name           string       `json:"name"`
	AvatarID       string       `json:"avatarId"`
	HashedPassword string       `json:"hashedPassword,omitempty"`
	Settings       RoomSettings `json:"settings"`
}

type JoinCommand struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
	AvatarID string `json:"avatarId"`
	Password string `json:"password,omitempty"`
}

type LeaveCommand struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// RoomCommand covers start, nextQuestion and disband.
type RoomCommand struct {
	RoomCode string `json:"roomCode"`
}

type AnswerCommand struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	AnswerIndex *int   `json:"answerIndex"`
	AnswerTime  int64  `json:"answerTime"` // ms since the question was shown, client clock
}

// Event is anything the server pushes to a connection.
type Event interface {
	EventType() string
}

type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AvatarID     string `json:"avatarId"`
	IsHost       bool   `json:"isHost"`
	IsPlaying    bool   `json:"isPlaying"`
	Connected    bool   `json:"connected"`
	Answered     bool   `json:"answered"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correctCount"`
}

type RankedPlayer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AvatarID     string `json:"avatarId"`
	Score        int    `json:"score"`
	Rank         int    `json:"rank"`
	CorrectCount int    `json:"correctCount"`
}

type AnswerOutcome struct {
	PlayerID string `json:"playerId"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Points   int    `json:"points"`
}

type GameSummary struct {
	QuestionCount int `json:"questionCount"`
	PlayerCount   int `json:"playerCount"`
}

type RoomCreated struct {
	Type     string       `json:"type"`
	RoomCode string       `json:"roomCode"`
	PlayerID string       `json:"playerId"`
	Token    string       `json:"token,omitempty"`
	Settings RoomSettings `json:"settings"`
}

func (RoomCreated) EventType() string { return EventRoomCreated }

type RoomJoined struct {
	Type     string       `json:"type"`
	RoomCode string       `json:"roomCode"`
	PlayerID string       `json:"playerId"`
	HostID   string       `json:"hostId"`
	Token    string       `json:"token,omitempty"`
	Resumed  bool         `json:"resumed,omitempty"`
	Settings RoomSettings `json:"settings"`
}

func (RoomJoined) EventType() string { return EventRoomJoined }

type PlayerJoined struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	AvatarID   string `json:"avatarId"`
}

func (PlayerJoined) EventType() string { return EventPlayerJoined }

type PlayerLeft struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Reason     string `json:"reason,omitempty"`
}

func (PlayerLeft) EventType() string { return EventPlayerLeft }

type PlayersUpdate struct {
	Type    string       `json:"type"`
	HostID  string       `json:"hostId"`
	Players []PlayerInfo `json:"players"`
}

func (PlayersUpdate) EventType() string { return EventPlayersUpdate }

type GameStateChanged struct {
	Type           string `json:"type"`
	State          string `json:"state"`
	RemainingTime  int    `json:"remainingTime"`        // seconds
	DeadlineAt     int64  `json:"deadlineAt,omitempty"` // unix ms
	QuestionIndex  int    `json:"questionIndex"`
	TotalQuestions int    `json:"totalQuestions"`
}

func (GameStateChanged) EventType() string { return EventGameStateChanged }

// Question never carries the correct answer.
type Question struct {
	Type           string   `json:"type"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	QuestionIndex  int      `json:"questionIndex"`
	TotalQuestions int      `json:"totalQuestions"`
	Duration       int      `json:"duration"`
	DeadlineAt     int64    `json:"deadlineAt"`
}

func (Question) EventType() string { return EventQuestion }

type PlayerAnswered struct {
	Type          string `json:"type"`
	PlayerID      string `json:"playerId"`
	QuestionIndex int    `json:"questionIndex"`
	AnsweredCount int    `json:"answeredCount"`
	PlayerCount   int    `json:"playerCount"`
}

func (PlayerAnswered) EventType() string { return EventPlayerAnswered }

type AnswerResult struct {
	Type          string          `json:"type"`
	QuestionIndex int             `json:"questionIndex"`
	Correct       bool            `json:"correct"`
	CorrectIndex  int             `json:"correctIndex"`
	CorrectAnswer string          `json:"correctAnswer"`
	Points        int             `json:"points"`
	Score         int             `json:"score"`
	Results       []AnswerOutcome `json:"results"`
}

func (AnswerResult) EventType() string { return EventAnswerResult }

type Rankings struct {
	Type           string         `json:"type"`
	QuestionIndex  int            `json:"questionIndex"`
	TotalQuestions int            `json:"totalQuestions"`
	Players        []RankedPlayer `json:"players"`
}

func (Rankings) EventType() string { return EventRankings }

type GameEnded struct {
	Type    string         `json:"type"`
	Players []RankedPlayer `json:"players"`
	Summary GameSummary    `json:"summary"`
	Reason  string         `json:"reason,omitempty"`
}

func (GameEnded) EventType() string { return EventGameEnded }

type RoomDisbanded struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

func (RoomDisbanded) EventType() string { return EventRoomDisbanded }

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (Error) EventType() string { return EventError }

type Pong struct {
	Type string `json:"type"`
}

func (Pong) EventType() string { return EventPong }
