package cli

import (
	"context"
	"fmt"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/config"
	"church-quiz-service/internal/infra/filestore"
	"church-quiz-service/internal/infra/memory"
	"church-quiz-service/internal/infra/postgres"
	infraredis "church-quiz-service/internal/infra/redis"
	"church-quiz-service/internal/platform/logger"
	"church-quiz-service/internal/realtime"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// services is the wired object graph shared by the subcommands.
type services struct {
	hub       *realtime.Hub
	blobs     *filestore.Store
	quizzes   *app.QuizService
	boards    *app.LeaderboardService
	publisher *app.LeaderboardPublisher
	admin     *app.AdminService
	profiles  *app.ProfileService
	push      *app.PushService
}

type storage interface {
	app.QuizStore
	app.SubmissionStore
	app.ParticipantStore
	app.PushSubscriptionStore
}

// buildServices connects the backing stores named by cfg. Without Postgres
// everything lives in memory; without Redis the cache, realtime fan-out and
// push hand-off stay in process. The returned cleanup closes connections.
func buildServices(ctx context.Context, cfg config.Config, log *logger.Logger) (*services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		store  storage
		loader memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		store = postgres.NewStore(db)
		loader = postgres.NewQuizLoader(pool)
	} else {
		log.Warn("postgres not configured, using in-memory store")
		mem := memory.NewStore()
		store = mem
		loader = mem
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: 5 * time.Second,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	hub := realtime.NewHub(0)
	hub.EvictOn(app.EventQuizDeleted)

	var (
		cache       app.QuizRepository
		broadcaster app.Broadcaster = hub
		pusher      app.Pusher
	)
	if redisClient != nil {
		cache = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		bus := infraredis.NewLeaderboardBus(redisClient, cfg.Redis.Channel, log)
		if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
			cleanup()
			return nil, nil, err
		}
		broadcaster = bus
		pusher = infraredis.NewPushOutbox(redisClient, cfg.Redis.PushQueue)
	} else {
		log.Warn("redis not configured, realtime and push stay in process")
		cache = memory.NewQuizRepository(loader, quizTTL)
		pusher = memory.NewPusher(log)
	}

	mediaDir := cfg.Avatar.Dir
	if mediaDir == "" {
		mediaDir = "data/media"
	}
	mediaURL := cfg.Avatar.BaseURL
	if mediaURL == "" {
		mediaURL = "/media"
	}
	blobs, err := filestore.New(mediaDir, mediaURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var shuffler app.Shuffler
	if cfg.Quiz.ShuffleSeed != 0 {
		shuffler = app.NewRandShuffler(cfg.Quiz.ShuffleSeed)
	}
	bank := app.NewQuestionBank(cache, store, shuffler)
	boards := app.NewLeaderboardService(store, app.LeaderboardLimits{
		Quiz:    cfg.Quiz.LeaderboardLimit,
		Overall: cfg.Quiz.OverallLimit,
		Max:     cfg.Quiz.MaxLeaderboardLimit,
	})
	publisher := app.NewLeaderboardPublisher(boards, broadcaster, log, config.TTLDuration(cfg.Quiz.PublishTimeout, 10*time.Second))
	push := app.NewPushService(store, pusher, log, app.WithAppURL(cfg.Push.AppURL))

	return &services{
		hub:       hub,
		blobs:     blobs,
		boards:    boards,
		publisher: publisher,
		push:      push,
		quizzes: app.NewQuizService(bank, store,
			app.WithSubmissionHook(publisher),
			app.WithRevealAnswers(cfg.Quiz.RevealAnswers),
			app.WithLogger(log),
		),
		admin:    app.NewAdminService(store, cache, push, log, app.WithQuizDeletedHook(publisher)),
		profiles: app.NewProfileService(store, blobs, cfg.Avatar.Size, app.WithResultsHook(publisher)),
	}, cleanup, nil
}
