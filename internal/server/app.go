// Package server initializes and runs the application: it opens the
// database and Redis connections, applies migrations, assembles the
// services and serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/manukko/todos/internal/logging"
	"github.com/manukko/todos/internal/server/auth"
	"github.com/manukko/todos/internal/server/config"
	srvhttp "github.com/manukko/todos/internal/server/http"
	"github.com/manukko/todos/internal/server/mail"
	"github.com/manukko/todos/internal/server/repositories/repomanager"
	"github.com/manukko/todos/internal/server/revocation"
	"github.com/manukko/todos/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	rdb        *redis.Client
	sessionSvc *services.SessionService
	todoSvc    *services.TodoService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager(db)
	if err := repos.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	secret := []byte(cfg.SecretKey)
	mailer := mail.NewMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, logger.With("component", "mailer"))

	sessionSvc := services.NewSessionService(services.SessionServiceParams{
		DB:          db,
		Repos:       repos,
		Codec:       auth.NewTokenCodec(secret),
		VerifyLinks: auth.NewLinkCodec(secret, "verify-email", cfg.LinkMaxAge),
		ResetLinks:  auth.NewLinkCodec(secret, "reset-password", cfg.LinkMaxAge),
		Revoked:     revocation.NewRegistry(rdb),
		Mailer:      mailer,
		Logger:      logger.With("component", "sessions"),
		AccessTTL:   cfg.AccessTokenValidityDuration,
		RenewalTTL:  cfg.RefreshTokenValidityDuration,
		BaseURL:     cfg.BaseURL,
	})

	todoSvc := services.NewTodoService(db, repos, cfg, logger.With("component", "todos"))

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		rdb:        rdb,
		sessionSvc: sessionSvc,
		todoSvc:    todoSvc,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := srvhttp.NewServer(app.config.EndpointAddrHTTP, app.sessionSvc, app.todoSvc, app.logger.With("component", "http"))

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
	if err := app.rdb.Close(); err != nil {
		app.logger.Error(ctx, "closing redis", "error", err)
	}
}
