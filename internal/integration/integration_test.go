package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/infra/postgres"
	pgmigrations "church-quiz-service/internal/infra/postgres/migrations"
	infraredis "church-quiz-service/internal/infra/redis"
	"church-quiz-service/internal/realtime"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
)

type stack struct {
	store     *postgres.Store
	admin     *app.AdminService
	profiles  *app.ProfileService
	quizzes   *app.QuizService
	boards    *app.LeaderboardService
	publisher *app.LeaderboardPublisher
	hub       *realtime.Hub
}

func TestQuizEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	s := newStack(t, ctx, pgURL, redisURL)

	quiz, err := s.admin.CreateQuiz(ctx, "Gospels")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i, correct := range []domain.OptionLabel{domain.OptionA, domain.OptionB, domain.OptionC} {
		if _, err := s.admin.AddQuestion(ctx, quiz.ID, questionInput(fmt.Sprintf("Question %d", i+1), correct)); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	if _, err := s.admin.Activate(ctx, quiz.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	for _, id := range []string{"u1", "u2"} {
		if _, err := s.profiles.Sync(ctx, domain.Participant{ID: id, Name: "Member " + id}); err != nil {
			t.Fatalf("sync participant: %v", err)
		}
	}

	updates, unsubscribe := s.hub.Subscribe(app.QuizLeaderboardTopic(quiz.ID))
	defer unsubscribe()

	questions, err := s.quizzes.PlayableQuestions(ctx, quiz.ID, "u1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}

	stored, err := s.admin.ListQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	a, b := domain.OptionA, domain.OptionB
	sub, err := s.quizzes.Submit(ctx, quiz.ID, "u1", []domain.AnswerSubmission{
		{QuestionID: stored[0].ID, Chosen: &a},
		{QuestionID: stored[1].ID, Chosen: &b},
		{QuestionID: stored[2].ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := domain.Score{Total: 3, Acertos: 2, Nulos: 1, Percentage: 67}
	if sub.Result.Score != want {
		t.Fatalf("expected %+v, got %+v", want, sub.Result.Score)
	}

	select {
	case msg := <-updates:
		if msg.Event != app.EventRankingUpdated {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for leaderboard broadcast over redis")
	}

	if _, err := s.quizzes.PlayableQuestions(ctx, quiz.ID, "u1"); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	// concurrent attempts by the same participant hit the unique constraints
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
		ids   = make(map[int64]struct{})
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.quizzes.FlushPartial(ctx, quiz.ID, "u2", nil)
			if err != nil {
				t.Errorf("flush: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !r.Replayed {
				fresh++
			}
			ids[r.Result.ID] = struct{}{}
		}()
	}
	wg.Wait()
	if fresh != 1 || len(ids) != 1 {
		t.Fatalf("expected a single stored attempt, got fresh=%d ids=%d", fresh, len(ids))
	}

	s.publisher.Wait()
	board, err := s.boards.QuizLeaderboard(ctx, quiz.ID, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].ParticipantID != "u1" || board.Entries[0].Name != "Member u1" {
		t.Fatalf("expected u1 leading with name, got %+v", board.Entries)
	}
	overall, err := s.boards.OverallLeaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if len(overall.Entries) != 2 || overall.Entries[0].AveragePercentage != 67 {
		t.Fatalf("unexpected overall leaderboard %+v", overall.Entries)
	}

	page, err := s.profiles.ListParticipants(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if page.Total != 2 || page.TotalPages != 2 || len(page.Participants) != 1 || page.Participants[0].ID != "u2" {
		t.Fatalf("unexpected participant page %+v", page)
	}
	if err := s.profiles.DeleteParticipant(ctx, "admin", "u2"); err != nil {
		t.Fatalf("delete participant: %v", err)
	}
	s.publisher.Wait()
	board, err = s.boards.QuizLeaderboard(ctx, quiz.ID, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].ParticipantID != "u1" {
		t.Fatalf("expected u2 results cascaded away, got %+v", board.Entries)
	}

	// a second activation must leave exactly one quiz open
	next, err := s.admin.CreateQuiz(ctx, "Acts")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := s.admin.Activate(ctx, next.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	all, err := s.admin.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	active := 0
	for _, q := range all {
		if q.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected one active quiz, got %d", active)
	}
	if _, err := s.quizzes.Submit(ctx, quiz.ID, "u1", nil); err != nil {
		t.Fatalf("replay after deactivation should succeed, got %v", err)
	}

	if err := s.admin.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, ok, err := s.store.FindResult(ctx, quiz.ID, "u1"); err != nil || ok {
		t.Fatalf("expected results to cascade on delete, ok=%v err=%v", ok, err)
	}
}

func newStack(t *testing.T, ctx context.Context, pgURL, redisURL string) *stack {
	t.Helper()
	db := postgres.OpenDB(pgURL)
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	store := postgres.NewStore(db)
	cache := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)

	hub := realtime.NewHub(0)
	bus := infraredis.NewLeaderboardBus(redisClient, infraredis.DefaultBusChannel, nil)
	if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
		t.Fatalf("start forwarder: %v", err)
	}

	boards := app.NewLeaderboardService(store, app.LeaderboardLimits{})
	publisher := app.NewLeaderboardPublisher(boards, bus, nil, 5*time.Second)
	t.Cleanup(publisher.Wait)

	push := app.NewPushService(store, infraredis.NewPushOutbox(redisClient, infraredis.DefaultPushQueue), nil)
	bank := app.NewQuestionBank(cache, store, nil)
	return &stack{
		store:     store,
		admin:     app.NewAdminService(store, cache, push, nil, app.WithQuizDeletedHook(publisher)),
		profiles:  app.NewProfileService(store, nil, 0, app.WithResultsHook(publisher)),
		quizzes:   app.NewQuizService(bank, store, app.WithSubmissionHook(publisher)),
		boards:    boards,
		publisher: publisher,
		hub:       hub,
	}
}

func questionInput(prompt string, correct domain.OptionLabel) app.QuestionInput {
	options := make([]domain.Option, 0, len(domain.OptionLabels))
	for _, l := range domain.OptionLabels {
		options = append(options, domain.Option{Label: l, Text: "Option " + string(l)})
	}
	return app.QuestionInput{Prompt: prompt, Options: options, Correct: correct, TimeLimitSeconds: 20}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(context.Background())
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(context.Background())
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
