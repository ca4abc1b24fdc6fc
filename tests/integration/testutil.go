//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/voicepost-platform/voicepost/internal/api"
	"github.com/voicepost-platform/voicepost/internal/contextstore"
	"github.com/voicepost-platform/voicepost/internal/credentials"
	"github.com/voicepost-platform/voicepost/internal/pipeline"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	"github.com/voicepost-platform/voicepost/internal/schedule"
	"github.com/voicepost-platform/voicepost/internal/scoring"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Scheduler   *schedule.Scheduler
	ContextSvc  *contextstore.Service
}

var testEnv *TestEnv

// hashEmbedder is a deterministic stand-in for the Gemini embedding API so
// integration tests exercise the pgvector path without network access.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, contextstore.EmbeddingDims)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255
	}
	return vec, nil
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "voicepost_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/voicepost_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Enable extensions
	_, err = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"; CREATE EXTENSION IF NOT EXISTS "vector";`)
	if err != nil {
		t.Fatalf("enabling extensions: %v", err)
	}

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Setup services
	encryptionKey := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	credSvc, err := credentials.NewService(credentials.NewPostgresRepository(pool), encryptionKey)
	if err != nil {
		t.Fatalf("creating credentials service: %v", err)
	}
	credHandler := credentials.NewHandler(credSvc)

	contextSvc := contextstore.NewService(contextstore.NewPostgresRepository(pool), hashEmbedder{})
	contextHandler := contextstore.NewHandler(contextSvc)

	registry := publisher.NewRegistry(publisher.NewServiceCredentials(credSvc), slog.Default())

	clock := clockwork.NewRealClock()
	scheduler := schedule.NewScheduler(clock, slog.Default(), nil)
	scheduler.Start(ctx)
	t.Cleanup(scheduler.Stop)

	gate := pipeline.NewGate(
		scoring.NewEvaluator(scoring.DefaultPolicy()),
		schedule.NewParser(time.UTC),
		scheduler,
		registry,
		nil,
		clock,
		slog.Default(),
	)
	pipeHandler := pipeline.NewHandler(nil, gate, scheduler, registry)

	router := api.NewRouter(pool, nil,
		api.RouterConfig{},
		api.HandlerSet{
			ConfirmPost:    pipeHandler.ConfirmPost,
			ListScheduled:  pipeHandler.ListScheduled,
			CancelSchedule: pipeHandler.CancelSchedule,

			SaveKeys: credHandler.SaveKeys,

			AddContext: contextHandler.AddTexts,

			SchedulerRunning: scheduler.Running,
		})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Scheduler:   scheduler,
		ContextSvc:  contextSvc,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func PostJSON(t *testing.T, env *TestEnv, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	resp, err := http.Post(env.Server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decoding response body %q: %v", raw, err)
		}
	}
	return decoded
}
