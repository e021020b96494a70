// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"feedbacktriage/internal/db"
	"feedbacktriage/internal/models"
)

// TestDB connects to TEST_DATABASE_URL, applies migrations and returns a
// cleanup function. The test is skipped when the variable is unset.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)
	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	pool.Exec(ctx, "DELETE FROM feedback_overrides")
	pool.Exec(ctx, "DELETE FROM feedback")
}

// CreateTestFeedback inserts a successfully analyzed record and returns it.
func CreateTestFeedback(t *testing.T, database *db.DB, name string, analysis models.Analysis) *models.Feedback {
	t.Helper()

	ok := true
	fb := &models.Feedback{
		CustomerName:     name,
		Email:            name + "@example.com",
		Message:          "feedback from " + name,
		OriginalAnalysis: &analysis,
		AgentSuccess:     &ok,
	}
	if err := database.InsertFeedback(context.Background(), fb); err != nil {
		t.Fatalf("failed to create test feedback: %v", err)
	}
	return fb
}
