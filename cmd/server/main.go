package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/devroom/internal/ai"
	"github.com/good-yellow-bee/devroom/internal/api"
	apiai "github.com/good-yellow-bee/devroom/internal/api/ai"
	"github.com/good-yellow-bee/devroom/internal/api/auth"
	"github.com/good-yellow-bee/devroom/internal/api/health"
	"github.com/good-yellow-bee/devroom/internal/chat"
	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/realtime"
	"github.com/good-yellow-bee/devroom/internal/room"
	"github.com/good-yellow-bee/devroom/internal/storage"
	"github.com/good-yellow-bee/devroom/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "devroom-server",
	Short: "devroom server - collaborative project rooms with an inline assistant",
	Long: `devroom server hosts the REST API for accounts and projects and the
websocket rooms where project members chat and call the AI assistant.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose
	cfg.LoadSecrets()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Auto-create data directory
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	revoked, redisPinger, err := openRevocationSet(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer revoked.Close()

	tokens := auth.NewTokenService(
		auth.NewJWTService([]byte(cfg.JWTSecret), cfg.Duration(cfg.Auth.TokenTTL)),
		revoked,
		cfg.Duration(cfg.Auth.RevocationTTL),
	)

	aiTimeout := cfg.Duration(cfg.AI.Timeout)
	var gateway *ai.Gateway
	if cfg.AI.Enabled {
		gateway = ai.NewGateway(ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: 0.3,
			TopP:        0.9,
			UserAgent:   config.UserAgent(),
		}))
		log.Printf("ai assistant enabled (model %s)", cfg.AI.Model)
	} else {
		log.Printf("ai assistant disabled; commands will be answered with an error")
	}

	// Interfaces must stay nil when the assistant is disabled.
	var chatGen chat.Generator
	var apiGen apiai.Generator
	if gateway != nil {
		chatGen, apiGen = gateway, gateway
	}

	chatSvc := chat.NewService(
		room.NewRegistry(),
		chat.NewRecorder(store.Messages(), 5*time.Second),
		chatGen,
		chat.Config{Marker: cfg.Chat.CommandMarker, GenerateTimeout: aiTimeout},
	)

	srv, err := api.New(&api.Config{
		Address:          cfg.Server.HTTPAddress,
		RateLimitPerIP:   cfg.Auth.RateLimitPerIP,
		RateLimitPerUser: cfg.Auth.RateLimitPerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Duration(cfg.Auth.LockoutDuration),
		HistoryLimit:     cfg.Chat.HistoryLimit,
		AITimeout:        aiTimeout,
		Realtime: realtime.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MessageRate:    cfg.Chat.MessageRate,
			MessageBurst:   cfg.Chat.MessageBurst,
		},
		Verbose: cfg.Verbose,
	}, api.Deps{
		Storage:   store,
		Tokens:    tokens,
		Chat:      chatSvc,
		Generator: apiGen,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	if redisPinger != nil {
		srv.RegisterHealthChecker(health.NewRedisChecker(redisPinger))
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting %s", config.VersionString())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx)
	})

	if cfg.MetricsEnabled() {
		metricsSrv := metrics.NewServer(cfg.Server.MetricsAddress)
		g.Go(metricsSrv.Start)
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()

	// Let in-flight assistant replies land before the store closes.
	chatSvc.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), aiTimeout)
	defer cancel()
	if err := chatSvc.Wait(waitCtx); err != nil {
		log.Printf("chat shutdown: abandoning pending replies: %v", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run server: %w", runErr)
	}
	log.Printf("server stopped")
	return nil
}

type revocationStore interface {
	auth.RevocationSet
	Close() error
}

// openRevocationSet returns the shared redis set when configured and the
// in-memory set otherwise. The pinger is nil for the in-memory set.
func openRevocationSet(ctx context.Context, cfg *Config) (revocationStore, health.Pinger, error) {
	if cfg.Redis.Address == "" {
		log.Printf("token revocations kept in memory")
		return auth.NewMemoryRevocationSet(time.Minute), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.RedisPassword,
		DB:       cfg.Redis.DB,
	})
	set := auth.NewRedisRevocationSet(client)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := set.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Address, err)
	}
	log.Printf("token revocations shared via redis at %s", cfg.Redis.Address)
	return set, set, nil
}
