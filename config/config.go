// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"trainvoc/game"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Words    WordsConfig    `mapstructure:"words"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	PublicURL       string        `mapstructure:"publicurl"`
	CORSOrigins     string        `mapstructure:"corsorigins"`
	LogLevel        string        `mapstructure:"loglevel"`
	LogFormat       string        `mapstructure:"logformat"`
	RateLimit       float64       `mapstructure:"ratelimit"` // requests per second per IP
	RateLimitBurst  int           `mapstructure:"ratelimitburst"`
	WSMessageRate   float64       `mapstructure:"wsmessagerate"` // inbound messages per second per connection
	WSMessageBurst  int           `mapstructure:"wsmessageburst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtsecret"`
	TokenTTL  time.Duration `mapstructure:"tokenttl"`
	AdminKey  string        `mapstructure:"adminkey"` // empty disables /api/admin
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxopenconns"`
	MaxIdleConns    int           `mapstructure:"maxidleconns"`
	ConnMaxLifetime time.Duration `mapstructure:"connmaxlifetime"`
	AutoMigrate     bool          `mapstructure:"automigrate"`
}

type WordsConfig struct {
	Source string `mapstructure:"source"` // file or database
	Dir    string `mapstructure:"dir"`
}

type GameConfig struct {
	MaxPlayers        int           `mapstructure:"maxplayers"`
	CountdownDuration time.Duration `mapstructure:"countdown"`
	RevealDuration    time.Duration `mapstructure:"reveal"`
	RankingDuration   time.Duration `mapstructure:"ranking"`
	ReconnectGrace    time.Duration `mapstructure:"reconnectgrace"`
	FinishedRoomTTL   time.Duration `mapstructure:"finishedttl"`
	IdleRoomTimeout   time.Duration `mapstructure:"idletimeout"`
	ReaperInterval    time.Duration `mapstructure:"reaperinterval"`
	SendBuffer        int           `mapstructure:"sendbuffer"`
	WordFetchTimeout  time.Duration `mapstructure:"wordfetchtimeout"`
}

const (
	WordSourceFile     = "file"
	WordSourceDatabase = "database"
)

// Load reads configuration. Priority: environment > config file > defaults.
// An empty path searches ./config and the working directory for server.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("server")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	env := map[string]string{
		"server.port":            "PORT",
		"server.host":            "HOST",
		"server.publicurl":       "PUBLIC_URL",
		"server.corsorigins":     "CORS_ORIGINS",
		"server.loglevel":        "LOG_LEVEL",
		"server.logformat":       "LOG_FORMAT",
		"server.ratelimit":       "RATE_LIMIT",
		"server.ratelimitburst":  "RATE_LIMIT_BURST",
		"server.wsmessagerate":   "WS_MESSAGE_RATE",
		"server.wsmessageburst":  "WS_MESSAGE_BURST",
		"server.shutdowntimeout": "SHUTDOWN_TIMEOUT",
		"auth.jwtsecret":         "JWT_SECRET",
		"auth.tokenttl":          "TOKEN_TTL",
		"auth.adminkey":          "ADMIN_KEY",
		"database.url":           "DATABASE_URL",
		"database.automigrate":   "DB_AUTO_MIGRATE",
		"words.source":           "WORD_SOURCE",
		"words.dir":              "WORDS_DIR",
		"game.maxplayers":        "MAX_PLAYERS",
		"game.reconnectgrace":    "RECONNECT_GRACE",
		"game.finishedttl":       "FINISHED_ROOM_TTL",
		"game.idletimeout":       "IDLE_ROOM_TIMEOUT",
		"game.reaperinterval":    "REAPER_INTERVAL",
		"game.wordfetchtimeout":  "WORD_FETCH_TIMEOUT",
	}
	for key, name := range env {
		_ = v.BindEnv(key, name)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.publicurl", "http://localhost:3000")
	v.SetDefault("server.corsorigins", "http://localhost:3000")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "console")
	v.SetDefault("server.ratelimit", 10.0)
	v.SetDefault("server.ratelimitburst", 20)
	v.SetDefault("server.wsmessagerate", 5.0)
	v.SetDefault("server.wsmessageburst", 10)
	v.SetDefault("server.shutdowntimeout", "10s")

	v.SetDefault("auth.tokenttl", "6h")

	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", "5m")
	v.SetDefault("database.automigrate", true)

	v.SetDefault("words.source", WordSourceFile)
	v.SetDefault("words.dir", "./words")

	v.SetDefault("game.maxplayers", 8)
	v.SetDefault("game.countdown", "3s")
	v.SetDefault("game.reveal", "3s")
	v.SetDefault("game.ranking", "5s")
	v.SetDefault("game.reconnectgrace", "10s")
	v.SetDefault("game.finishedttl", "2m")
	v.SetDefault("game.idletimeout", "30m")
	v.SetDefault("game.reaperinterval", "30s")
	v.SetDefault("game.sendbuffer", game.DefaultSendBuffer)
	v.SetDefault("game.wordfetchtimeout", "5s")
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port must be set")
	}
	switch c.Server.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Server.LogFormat)
	}
	if c.Server.RateLimit <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	if c.Server.WSMessageRate <= 0 || c.Server.WSMessageBurst <= 0 {
		return errors.New("websocket message rate and burst must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	switch c.Words.Source {
	case WordSourceFile:
		if c.Words.Dir == "" {
			return errors.New("WORDS_DIR must be set when WORD_SOURCE=file")
		}
	case WordSourceDatabase:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL must be set when WORD_SOURCE=database")
		}
	default:
		return fmt.Errorf("word source must be %q or %q, got %q", WordSourceFile, WordSourceDatabase, c.Words.Source)
	}
	if c.Game.MaxPlayers < 2 {
		return errors.New("max players must be at least 2")
	}
	if c.Game.ReconnectGrace < 0 {
		return errors.New("reconnect grace cannot be negative")
	}
	if c.Game.ReaperInterval <= 0 {
		return errors.New("reaper interval must be positive")
	}
	return nil
}

// Engine converts the game section into engine tunables.
func (g GameConfig) Engine() game.Config {
	cfg := game.DefaultConfig()
	cfg.MaxPlayers = g.MaxPlayers
	cfg.CountdownDuration = g.CountdownDuration
	cfg.RevealDuration = g.RevealDuration
	cfg.RankingDuration = g.RankingDuration
	cfg.WordFetchTimeout = g.WordFetchTimeout
	cfg.ReconnectGrace = g.ReconnectGrace
	if g.ReconnectGrace == 0 {
		cfg.ReconnectGrace = -1
	}
	return cfg
}
