package setup

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/google/uuid"

	"github.com/strv-go/newsletter-publisher/internal/email"
	"github.com/strv-go/newsletter-publisher/internal/handler"
	"github.com/strv-go/newsletter-publisher/internal/password"
	"github.com/strv-go/newsletter-publisher/internal/repository"
	"github.com/strv-go/newsletter-publisher/internal/router"
	"github.com/strv-go/newsletter-publisher/internal/session"
)

// MockEmailSink is a programmable stand-in for the Postmark-style outbound
// email API: it serves a queue of status codes (falling back to 200 once
// exhausted) and counts every request it receives.
type MockEmailSink struct {
	*httptest.Server

	mu           sync.Mutex
	responses    []int
	calls        atomic.Int64
	lastBody     []byte
}

// NewMockEmailSink starts the fake server.
func NewMockEmailSink() *MockEmailSink {
	m := &MockEmailSink{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m.mu.Lock()
		m.lastBody = body
		m.mu.Unlock()
		m.calls.Add(1)
		status := m.nextStatus()
		w.WriteHeader(status)
	}))
	return m
}

// LastRequestBody returns the JSON body of the most recently received
// request, for assertions on the outbound TextBody/HtmlBody fields.
func (m *MockEmailSink) LastRequestBody() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBody
}

func (m *MockEmailSink) nextStatus() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return http.StatusOK
	}
	status := m.responses[0]
	m.responses = m.responses[1:]
	return status
}

// QueueResponses sets the sequence of status codes subsequent requests
// receive; once drained, every later call returns 200.
func (m *MockEmailSink) QueueResponses(statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = statuses
}

// Calls returns the total number of requests received so far.
func (m *MockEmailSink) Calls() int64 {
	return m.calls.Load()
}

// TestServer wraps httptest.Server with the real wired application,
// pointed at a real (test) Postgres and an in-process Redis fake.
type TestServer struct {
	*httptest.Server
	DB            *sql.DB
	Pool          *pgxpool.Pool
	Users         *repository.UserStore
	DeliveryQueue *repository.DeliveryQueue
	Sink          *email.Sink
	Client        *http.Client
	EmailSink     *MockEmailSink
	redisMock     *miniredis.Miniredis
	redisLive     *redis.Client
}

// NewTestServer wires the full application (router, session store,
// subscription/idempotency/issue/user stores, delivery worker's
// dependencies) against a real test database and records every outbound
// email-sink call on a local httptest.Server rather than a live provider.
func NewTestServer(t *testing.T) *TestServer {
	if err := godotenv.Load("../../../.env"); err != nil {
		t.Logf("Warning: Could not load .env file: %v", err)
	}

	testDB := SetupTestDatabase(t)

	dbURL := getTestDatabaseURL()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to open pgxpool for test server: %v", err)
	}

	emailSink := NewMockEmailSink()

	sink := email.New(email.Config{
		APIBaseURL:  emailSink.URL,
		SenderEmail: "newsletter@test.example.com",
	})

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := session.New(redisClient)

	subscriptions := repository.NewSubscriptionStore(pool, "http://127.0.0.1:8080", func(ctx context.Context, toEmail, toName, confirmationLink string) error {
		_, err := sink.Send(ctx, toEmail, "Confirm your subscription", confirmationLink, confirmationLink)
		return err
	})
	idempotency := repository.NewIdempotencyStore(pool)
	issues := repository.NewIssuePublisher()
	users := repository.NewUserStore(pool)
	deliveryQueue := repository.NewDeliveryQueue(pool)

	templates, err := handler.NewTemplates()
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	logger := zap.NewNop().Sugar()

	deps := &handler.Dependencies{
		Subscriptions: subscriptions,
		Idempotency:   idempotency,
		Issues:        issues,
		Users:         users,
		Sessions:      sessions,
		Templates:     templates,
		Logger:        logger,
	}

	appRouter := router.New(deps, sessions, logger)
	server := httptest.NewServer(appRouter)

	return &TestServer{
		Server:        server,
		DB:            testDB,
		Pool:          pool,
		Users:         users,
		DeliveryQueue: deliveryQueue,
		Sink:          sink,
		Client:        &http.Client{},
		EmailSink:     emailSink,
		redisMock:     mr,
		redisLive:     redisClient,
	}
}

// DrainOneDeliveryTask claims and executes a single delivery-queue row the
// same way the production worker loop's tryExecuteTask does, without
// needing a live background worker goroutine in the test.
func (ts *TestServer) DrainOneDeliveryTask(t *testing.T) error {
	tx, task, err := ts.DeliveryQueue.Claim(context.Background())
	if err != nil {
		return err
	}
	issue, err := ts.DeliveryQueue.GetIssue(context.Background(), tx, task.NewsletterIssueID)
	if err != nil {
		tx.Rollback(context.Background())
		return err
	}
	if _, err := ts.Sink.Send(context.Background(), task.SubscriberEmail, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
		tx.Rollback(context.Background())
		return err
	}
	return ts.DeliveryQueue.Delete(context.Background(), tx, task.NewsletterIssueID, task.SubscriberEmail)
}

// SeedAdmin inserts an administrator with the given credentials, returning
// its generated user ID, for scenarios that require an authenticated session.
func (ts *TestServer) SeedAdmin(t *testing.T, username, plainPassword string) string {
	salt, err := password.NewSalt()
	if err != nil {
		t.Fatalf("seed admin: new salt: %v", err)
	}
	hashed, err := password.Hash(plainPassword, salt)
	if err != nil {
		t.Fatalf("seed admin: hash: %v", err)
	}
	userID := uuid.NewString()
	if err := ts.Users.EnsureSeeded(context.Background(), userID, username, hashed, salt); err != nil {
		t.Fatalf("seed admin: ensure seeded: %v", err)
	}
	return userID
}

// Close tears down the test server and every resource it owns.
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.EmailSink != nil {
		ts.EmailSink.Close()
	}
	if ts.redisLive != nil {
		ts.redisLive.Close()
	}
	if ts.redisMock != nil {
		ts.redisMock.Close()
	}
	if ts.Pool != nil {
		ts.Pool.Close()
	}
	if ts.DB != nil {
		CleanupTestDatabase(ts.DB)
		ts.DB.Close()
	}
}

// URL returns the base URL for the test server
func (ts *TestServer) URL() string {
	return ts.Server.URL
}
