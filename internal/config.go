package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3001"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StoreDriver    string `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	LimitMessages  int    `env:"LIMIT_MESSAGES,default=50"`
	DefaultGroup   string `env:"DEFAULT_GROUP,default=Fun Friday Group"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`

	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=25s"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait      time.Duration `env:"WRITE_WAIT,default=10s"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	TypingTTL      time.Duration `env:"TYPING_TTL,default=5s"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=1s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	NatsURL   string `env:"NATS_URL"`
	NodeID    string `env:"NODE_ID"`
	RedisAddr string `env:"REDIS_ADDR"`

	CensoredDir       string `env:"CENSORED_DIR"`
	CensoredCharacter string `env:"CENSORED_CHARACTER,default=*"`
}

// Validate checks what the env tags can't express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with the badger store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with the postgres store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreBadger, StorePostgres, c.StoreDriver)
	}
	if c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", c.LimitMessages)
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSORED_CHARACTER must be a single character, got %q", str)
	}
	return r[0], nil
}
