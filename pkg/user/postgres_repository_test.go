package user

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresRepo(t *testing.T) *PostgresUserRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return NewPostgresUserRepository(pool)
}

func TestPostgresUserRepository(t *testing.T) {
	repo := setupPostgresRepo(t)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, CreateUserParams{
		Username:      "janedoe",
		Email:         "jane@example.com",
		PhoneNumber:   "+905551112233",
		PasswordHash:  []byte("$2a$10$hash"),
		SecurityStamp: "stamp-1",
	})
	require.NoError(t, err)

	t.Run("FindByEmail", func(t *testing.T) {
		found, err := repo.FindUserByEmail(ctx, "JANE@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.False(t, found.EmailConfirmed)
	})

	t.Run("FailedAccessRoundTrip", func(t *testing.T) {
		count, err := repo.IncrementFailedAccess(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)

		count, err = repo.IncrementFailedAccess(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), count)

		require.NoError(t, repo.ResetFailedAccess(ctx, created.ID))
		found, err := repo.FindUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(0), found.FailedAccessCount)
	})

	t.Run("LockoutEnd", func(t *testing.T) {
		end := time.Now().UTC().Add(20 * time.Minute).Truncate(time.Millisecond)
		require.NoError(t, repo.SetLockoutEnd(ctx, created.ID, end))
		found, err := repo.FindUserByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, found.LockoutEnd)
		assert.True(t, found.IsLockedOut(time.Now().UTC()))
	})

	t.Run("ConfirmAndStamp", func(t *testing.T) {
		require.NoError(t, repo.MarkEmailConfirmed(ctx, created.ID))
		require.NoError(t, repo.UpdateSecurityStamp(ctx, created.ID, "stamp-2"))
		found, err := repo.FindUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, found.EmailConfirmed)
		assert.Equal(t, "stamp-2", found.SecurityStamp)
	})

	t.Run("ExternalLoginCascade", func(t *testing.T) {
		other, err := repo.CreateUser(ctx, CreateUserParams{
			Username:      "linked",
			Email:         "linked@example.com",
			SecurityStamp: "stamp-1",
		})
		require.NoError(t, err)

		_, err = repo.AddExternalLogin(ctx, other.ID, "facebook", "abc123")
		require.NoError(t, err)

		_, err = repo.AddExternalLogin(ctx, other.ID, "facebook", "abc123")
		assert.ErrorIs(t, err, ErrDuplicateExternalLogin)

		require.NoError(t, repo.DeleteUser(ctx, other.ID))
		_, err = repo.FindUserByExternalLogin(ctx, "facebook", "abc123")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
