package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrocid0/alagloria-sub001/internal/config"
	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/alejandrocid0/alagloria-sub001/internal/game"
	"github.com/alejandrocid0/alagloria-sub001/internal/infra/memory"
	pgstore "github.com/alejandrocid0/alagloria-sub001/internal/infra/postgres"
	redisinfra "github.com/alejandrocid0/alagloria-sub001/internal/infra/redis"
	transport "github.com/alejandrocid0/alagloria-sub001/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	var loader memory.GameLoader = memory.NewStaticGameLoader(sampleGames())
	if pool != nil {
		loader = pgstore.NewGameLoader(pool)
	}

	cacheTTL := config.Duration(cfg.Game.CacheTTL, 10*time.Minute)
	var games game.GameRepository
	if redisClient != nil {
		games = redisinfra.NewGameRepository(redisClient, loader, cacheTTL)
	} else {
		games = memory.NewGameRepository(loader, cacheTTL)
	}

	var states game.StateStore
	var answers game.AnswerStore
	var results game.ResultStore
	if bunDB != nil {
		states = pgstore.NewStateStore(bunDB)
		answers = pgstore.NewAnswerStore(bunDB)
		results = pgstore.NewResultStore(bunDB)
	} else {
		states = memory.NewStateStore()
		answers = memory.NewAnswerStore()
		results = memory.NewResultStore()
	}
	if redisClient != nil {
		states = redisinfra.NewStateMarker(redisClient, states, redisTTL)
	}

	durations := game.Durations{
		Question:    config.Seconds(cfg.Game.QuestionSeconds, game.DefaultDurations().Question),
		Result:      config.Seconds(cfg.Game.ResultSeconds, game.DefaultDurations().Result),
		Leaderboard: config.Seconds(cfg.Game.LeaderboardSeconds, game.DefaultDurations().Leaderboard),
	}

	directory := memory.NewDirectory()
	broker := game.NewBroker()
	service := game.NewService(states, games, answers, results, directory, broker, durations)

	clock := game.NewClock(states, games, service,
		config.Duration(cfg.Scheduler.Interval, 5*time.Second),
		config.Duration(cfg.Scheduler.Lookahead, 10*time.Minute))

	clockCtx, stopClock := context.WithCancel(ctx)
	defer stopClock()
	go clock.Run(clockCtx)

	wsHandler := transport.NewWSHandler(service, directory)
	adminHandler := transport.NewAdminHandler(service, cfg.Server.AdminToken)
	router := transport.NewRouter(wsHandler, adminHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}
	stopClock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleGames provides a minimal round for dep-free demo runs; production
// deployments load definitions from Postgres.
func sampleGames() map[string]domain.GameDefinition {
	return map[string]domain.GameDefinition{
		"gloria-1": {
			ID:          "gloria-1",
			Title:       "Madrugá de prueba",
			ScheduledAt: time.Now().Add(time.Minute),
			Questions: []domain.Question{
				{
					ID:       "q1",
					Position: 1,
					Prompt:   "¿Qué hermandad procesiona desde la Macarena?",
					Options: []domain.Option{
						{ID: "o1", Text: "La Esperanza"},
						{ID: "o2", Text: "El Gran Poder"},
						{ID: "o3", Text: "Los Gitanos"},
					},
					CorrectOptionID: "o1",
				},
				{
					ID:       "q2",
					Position: 2,
					Prompt:   "¿En qué día sale El Silencio?",
					Options: []domain.Option{
						{ID: "o1", Text: "Jueves Santo"},
						{ID: "o2", Text: "Madrugá"},
						{ID: "o3", Text: "Domingo de Ramos"},
					},
					CorrectOptionID: "o2",
				},
			},
		},
	}
}
