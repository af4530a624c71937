package setup

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// SetupTestDatabase creates and configures a test database connection
// against the schema in migrations/ (subscriptions, subscription_tokens,
// users, newsletter_issues, issue_delivery_queue, idempotency).
func SetupTestDatabase(t *testing.T) *sql.DB {
	dbURL := getTestDatabaseURL()
	if dbURL == "" {
		t.Skip("No test database URL configured")
	}

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err, "Failed to connect to test database")

	err = db.Ping()
	require.NoError(t, err, "Failed to ping test database")

	ensureTablesExist(t, db)
	cleanTestData(t, db)

	return db
}

// CleanupTestDatabase cleans up test data and closes the database connection
func CleanupTestDatabase(db *sql.DB) {
	if db != nil {
		cleanTestData(nil, db)
	}
}

func getTestDatabaseURL() string {
	if testURL := os.Getenv("TEST_DATABASE_URL"); testURL != "" {
		return testURL
	}
	return os.Getenv("DATABASE_URL")
}

// ensureTablesExist warns if the migrations haven't been run against the
// test database; it never creates tables itself, matching the teacher's
// policy of treating migration tooling as a separate concern from tests.
func ensureTablesExist(t *testing.T, db *sql.DB) {
	tables := []string{"subscriptions", "subscription_tokens", "users", "newsletter_issues", "issue_delivery_queue", "idempotency"}

	for _, table := range tables {
		var exists bool
		query := `SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)`
		err := db.QueryRow(query, table).Scan(&exists)
		if err != nil && t != nil {
			t.Logf("Warning: Could not check if table %s exists: %v", table, err)
		}

		if !exists && t != nil {
			t.Logf("Warning: Table %s does not exist. Run cmd/migrate first.", table)
		}
	}
}

// cleanTestData removes test rows in dependency order.
func cleanTestData(t *testing.T, db *sql.DB) {
	cleanQueries := []string{
		"DELETE FROM issue_delivery_queue",
		"DELETE FROM idempotency",
		"DELETE FROM newsletter_issues",
		"DELETE FROM subscription_tokens",
		"DELETE FROM subscriptions WHERE email LIKE '%@test.example.com' OR email LIKE '%@integration.test' OR email = 'bar@qq.com'",
		"DELETE FROM users WHERE username LIKE 'test_%'",
	}

	for _, query := range cleanQueries {
		_, err := db.Exec(query)
		if err != nil && t != nil {
			t.Logf("Warning: Failed to clean test data with query %s: %v", query, err)
		}
	}
}
