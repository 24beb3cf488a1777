package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/authkeeper/authkeeper/internal/config"
	"github.com/authkeeper/authkeeper/internal/server"
	"github.com/authkeeper/authkeeper/internal/server/handlers"
	"github.com/authkeeper/authkeeper/internal/server/session"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/server/storage/mongo"
	"github.com/authkeeper/authkeeper/internal/server/storage/sqlite"
	"github.com/authkeeper/authkeeper/internal/server/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authkeeper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	tokenCfg := token.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TokenIssuer,
	}

	sessions := session.NewManager(logger, users, tokenCfg, cfg.BcryptCost)

	srv := server.New(server.Options{
		Logger:    logger,
		Users:     users,
		Sessions:  sessions,
		TokenCfg:  tokenCfg,
		CookieCfg: handlers.CookieConfig{Secure: cfg.CookieSecure},
		Address:   cfg.Address,
		Version:   Version,
	})

	logger.Info("starting authkeeper",
		slog.String("version", Version),
		slog.String("storage", cfg.StorageBackend))

	return srv.Run(ctx)
}

// openStorage открывает выбранный конфигурацией бекенд хранилища
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.UserStorage, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		s, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open mongo storage: %w", err)
		}
		closeFn := func() {
			if err := s.Close(context.Background()); err != nil {
				logger.Error("failed to close mongo storage", slog.Any("error", err))
			}
		}
		return s, closeFn, nil

	default:
		s, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		closeFn := func() {
			if err := s.Close(); err != nil {
				logger.Error("failed to close sqlite storage", slog.Any("error", err))
			}
		}
		return s, closeFn, nil
	}
}

func printVersion() {
	fmt.Printf("AuthKeeper Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
