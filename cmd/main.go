package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"huddle/api"
	"huddle/auth"
	"huddle/contract"
	"huddle/internal"
	"huddle/moderation"
	"huddle/observability"
	"huddle/relay"
	"huddle/repositories"
	"huddle/repositories/postgres"
	"huddle/runtime"
	"huddle/runtime/workers"
	"huddle/services"
	"huddle/transport"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Exit codes to give a meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Huddle terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// stores groups the repositories of the selected driver.
type stores struct {
	users    repositories.IUserRepository
	groups   repositories.IGroupRepository
	messages repositories.IMessageRepository
	inspect  api.Inspector
	close    func() error
}

// run builds every component and blocks until a signal or a server failure.
// Returning instead of exiting lets the deferred closes run.
func run() (int, error) {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return exitConfig, fmt.Errorf("failed to read .env: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	if config.NodeID == "" {
		config.NodeID = uuid.NewString()
	}
	log := logs.GetLoggerFromString(config.LogLevel).With("node", config.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	store, err := openStores(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing store...", "driver", config.StoreDriver)
		_ = store.close()
	}()

	var presence contract.PresenceStore = store.users
	var online api.OnlineLister
	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return exitRuntime, fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
		}
		defer func() { _ = client.Close() }()
		cache := repositories.NewPresenceCache(store.users, client, log)
		presence, online = cache, cache
		log.Info("Presence cache enabled", "addr", config.RedisAddr)
	}

	// 3. Optional content filter
	options := runtime.EngineOptions{TypingTTL: config.TypingTTL}
	if config.CensoredDir != "" {
		mask, err := internal.CharacterRune(config.CensoredCharacter)
		if err != nil {
			return exitConfig, err
		}
		dict, err := moderation.LoadDictionary(os.DirFS(config.CensoredDir), ".")
		if err != nil {
			return exitConfig, fmt.Errorf("failed to load censored words from %s: %w", config.CensoredDir, err)
		}
		filter, err := moderation.NewFilter(dict.Words, mask, log)
		if err != nil {
			return exitConfig, err
		}
		options.Filter = filter
		log.Info("Content filter enabled", "words", len(dict.Words), "languages", dict.Languages)
	}

	// 4. Optional relay between nodes
	sup := workers.NewSupervisor(log, config.RestartInterval)
	monitoring := observability.NewMonitoringManager()
	var natsRelay *relay.NatsRelay
	var natsConn *nats.Conn
	if config.NatsURL != "" {
		natsConn, err = nats.Connect(config.NatsURL, nats.Name("huddle-"+config.NodeID))
		if err != nil {
			return exitRuntime, fmt.Errorf("nats unreachable at %s: %w", config.NatsURL, err)
		}
		defer natsConn.Close()
		natsRelay = relay.NewNatsRelay(natsConn, config.NodeID)
		options.Relay = natsRelay
		log.Info("Cluster relay enabled", "url", config.NatsURL)
	}

	// 5. Engine
	engine := runtime.NewEngine(log, runtime.EngineStores{
		Messages: store.messages,
		Presence: presence,
		Users:    store.users,
		Groups:   store.groups,
	}, monitoring, options)

	sup.Add(workers.NewHeartbeatWorker(log, monitoring, config.HeartbeatInterval))
	if natsRelay != nil {
		sup.Add(workers.NewRelayWorker(log, natsConn, natsRelay, engine))
	}
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 6. HTTP server
	origins, invalid := transport.NewOriginPolicy(config.Origins())
	if len(invalid) > 0 {
		log.Warn("Ignoring invalid allowed origins", "origins", invalid)
	}
	websocketHandler := transport.NewHandler(log, engine, origins, transport.ClientConfig{
		SendBufferSize: config.SendBufferSize,
		MaxMessageSize: config.MaxMessageSize,
		PongWait:       config.PongWait,
		PingInterval:   config.PingInterval,
		WriteWait:      config.WriteWait,
	})
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	deps := api.Dependencies{
		Log:        log,
		NodeID:     config.NodeID,
		Auth:       services.NewAuthService(log, store.users, tokens),
		Chat:       services.NewChatService(log, store.groups, store.messages, store.users, config.DefaultGroup, config.LimitMessages),
		Tokens:     tokens,
		Monitoring: monitoring,
		Websocket:  websocketHandler,
		Online:     online,
	}
	if log.Enabled(ctx, slog.LevelDebug) {
		deps.Inspect = store.inspect
	}

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "store", config.StoreDriver, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final cleanup: stop accepting, close websockets and wait for their own cleanup,
	// then let the engine clean what's left before the stores close
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	websocketHandler.CloseAll()
	if err := websocketHandler.Drain(shutdownCtx); err != nil {
		log.Warn("Websockets still open at shutdown", "open", websocketHandler.Open(), "error", err)
	}
	engine.Stop(shutdownCtx)
	sup.Stop()
	<-supervisorDone

	log.Info("Program stopped cleanly")
	return code, runErr
}

func openStores(ctx context.Context, config internal.Config, log *slog.Logger) (stores, error) {
	switch config.StoreDriver {
	case internal.StorePostgres:
		db, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users:    postgres.NewUserRepository(db),
			groups:   postgres.NewGroupRepository(db),
			messages: postgres.NewMessageRepository(db),
			close:    db.Close,
		}, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return stores{}, fmt.Errorf("database opening failed: %w", err)
		}
		log.Info("Badger store opened", "path", config.BadgerFilepath)
		return stores{
			users:    repositories.NewUserRepository(db),
			groups:   repositories.NewGroupRepository(db),
			messages: repositories.NewMessageRepository(db, log),
			inspect: func(prefix string, limit int) ([]internal.InspectRow, error) {
				return internal.Scan(db, prefix, limit, internal.DescribeEntry)
			},
			close: db.Close,
		}, nil
	}
}
