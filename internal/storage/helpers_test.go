package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/lms-platform/internal/migrations"
	"github.com/magabrotheeeer/lms-platform/internal/models"
)

func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("lms_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))

	return storage, func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// TestDataFactory заполняет базу тестовыми данными.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateUser(t *testing.T, email string, lastLogin *time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.storage.CreateUser(ctx, models.User{Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	if lastLogin != nil {
		require.NoError(t, f.storage.UpdateLastLogin(ctx, id, *lastLogin))
	}
	return id
}

func (f *TestDataFactory) CreateCourse(t *testing.T, title string, ownerID int64) *models.Course {
	t.Helper()
	c, err := f.storage.CreateCourse(context.Background(), models.Course{Title: title, OwnerID: &ownerID, Price: 1000})
	require.NoError(t, err)
	return c
}

func (f *TestDataFactory) CreateLesson(t *testing.T, courseID, ownerID int64) *models.Lesson {
	t.Helper()
	l, err := f.storage.CreateLesson(context.Background(), models.Lesson{
		CourseID: courseID,
		Title:    "lesson",
		VideoURL: "https://youtu.be/abc123",
		OwnerID:  &ownerID,
	})
	require.NoError(t, err)
	return l
}

func (f *TestDataFactory) SetLastNotificationSent(t *testing.T, courseID int64, at *time.Time) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE courses SET last_notification_sent = $2 WHERE id = $1`, courseID, at)
	require.NoError(t, err)
}

func (f *TestDataFactory) CountSubscriptions(t *testing.T, userID, courseID int64) int {
	t.Helper()
	var n int
	require.NoError(t, f.storage.DB.QueryRow(
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1 AND course_id = $2`, userID, courseID).Scan(&n))
	return n
}

func ptr[T any](v T) *T {
	return &v
}
