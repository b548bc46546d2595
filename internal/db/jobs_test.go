// Package db_test contains integration tests for the SurrealDB job store.
// They need a running SurrealDB instance and are skipped in short mode.
package db_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnotes-ai/recall/internal/db"
	"github.com/fieldnotes-ai/recall/internal/models"
)

// getTestConfig returns config from environment or defaults for local testing.
func getTestConfig() db.Config {
	return db.Config{
		URL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		Namespace: getEnv("SURREALDB_NAMESPACE", "test_recall"),
		Database:  getEnv("SURREALDB_DATABASE", "test_jobs"),
		Username:  getEnv("SURREALDB_USER", "root"),
		Password:  getEnv("SURREALDB_PASS", "root"),
		AuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func setupClient(t *testing.T) *db.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := db.NewClient(ctx, getTestConfig(), logger)
	require.NoError(t, err, "should connect to SurrealDB")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	require.NoError(t, client.InitSchema(ctx), "should initialize schema")
	require.NoError(t, client.WipeData(ctx), "should wipe test data")
	return client
}

func TestJobLifecycle(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	sourceDate := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	job := models.Job{
		ID:         "job-abc123",
		UserID:     "u1",
		Name:       "standup.mp3",
		Modality:   models.ModalityAudio,
		SourceDate: &sourceDate,
	}
	require.NoError(t, client.CreateJob(ctx, job))

	got, err := client.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, models.ModalityAudio, got.Modality)
	require.NotNil(t, got.SourceDate)
	assert.True(t, got.SourceDate.Equal(sourceDate))

	require.NoError(t, client.MarkProcessing(ctx, job.ID))
	got, err = client.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)

	require.NoError(t, client.CompleteJob(ctx, job.ID, 17))
	got, err = client.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 17, got.ChunkCount)
}

func TestFailJob(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateJob(ctx, models.Job{
		ID: "job-fail1", UserID: "u1", Name: "broken.txt", Modality: models.ModalityText,
	}))
	require.NoError(t, client.FailJob(ctx, "job-fail1", "embedding service unavailable"))

	got, err := client.GetJob(ctx, "job-fail1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "embedding service unavailable", got.Error)
}

func TestGetJobNotFound(t *testing.T) {
	client := setupClient(t)

	_, err := client.GetJob(context.Background(), "no-such-job")
	assert.True(t, errors.Is(err, db.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestListJobsScopedToUser(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	for _, j := range []models.Job{
		{ID: "job-l1", UserID: "u1", Name: "a.txt", Modality: models.ModalityText},
		{ID: "job-l2", UserID: "u1", Name: "b.txt", Modality: models.ModalityText},
		{ID: "job-l3", UserID: "u2", Name: "c.txt", Modality: models.ModalityText},
	} {
		require.NoError(t, client.CreateJob(ctx, j))
	}

	jobs, err := client.ListJobs(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, "u1", j.UserID)
	}
}

func TestIncompleteJobs(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	for _, j := range []models.Job{
		{ID: "job-i1", UserID: "u1", Name: "a.txt", Modality: models.ModalityText},
		{ID: "job-i2", UserID: "u1", Name: "b.txt", Modality: models.ModalityText},
	} {
		require.NoError(t, client.CreateJob(ctx, j))
	}
	require.NoError(t, client.CompleteJob(ctx, "job-i2", 3))

	incomplete, err := client.IncompleteJobs(ctx)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "job-i1", incomplete[0].ID)
}
