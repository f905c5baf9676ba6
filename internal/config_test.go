package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "4000")
	t.Setenv("TYPING_TTL", "3s")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://chat.example.com ,")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal(4000, config.Port)
	req.Equal(3*time.Second, config.TypingTTL)
	req.Equal(StoreBadger, config.StoreDriver)
	req.Equal(50, config.LimitMessages)
	req.Equal(168*time.Hour, config.AuthTokenDuration)
	req.Equal([]string{"http://localhost:3000", "https://chat.example.com"}, config.Origins())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{StoreDriver: StoreBadger, BadgerFilepath: "./data", LimitMessages: 50}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "badger", mutate: func(*Config) {}},
		{name: "postgres", mutate: func(c *Config) { c.StoreDriver = StorePostgres; c.PostgresDSN = "postgres://x" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreDriver = StorePostgres }, wantErr: true},
		{name: "badger without path", mutate: func(c *Config) { c.BadgerFilepath = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: true},
		{name: "no history", mutate: func(c *Config) { c.LimitMessages = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)
	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	r, err = CharacterRune("é")
	req.NoError(err)
	req.Equal('é', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
