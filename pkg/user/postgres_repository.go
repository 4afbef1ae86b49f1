package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, phone_number, password_hash, email_confirmed,
	failed_access_count, lockout_end, security_stamp, created_at, updated_at`

// PostgresUserRepository implements UserRepository on a pgx connection pool.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-backed user repository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.EmailConfirmed,
		&u.FailedAccessCount,
		&u.LockoutEnd,
		&u.SecurityStamp,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *PostgresUserRepository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresUserRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresUserRepository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *PostgresUserRepository) FindUserByPhone(ctx context.Context, phone string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, phone))
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	query := `
		INSERT INTO users (username, email, phone_number, password_hash, email_confirmed, security_stamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query,
		arg.Username,
		arg.Email,
		arg.PhoneNumber,
		arg.PasswordHash,
		arg.EmailConfirmed,
		arg.SecurityStamp,
	))
}

func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	// Confirmation tokens, reset tokens and external login links cascade via
	// foreign keys; see migrations.
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// IncrementFailedAccess bumps the failed-attempt counter atomically and
// returns the new count.
func (r *PostgresUserRepository) IncrementFailedAccess(ctx context.Context, id uuid.UUID) (int32, error) {
	query := `
		UPDATE users
		SET failed_access_count = failed_access_count + 1,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
		RETURNING failed_access_count`
	var count int32
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return count, err
}

func (r *PostgresUserRepository) ResetFailedAccess(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_access_count = 0,
		    lockout_end = NULL,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *PostgresUserRepository) SetLockoutEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	query := `
		UPDATE users
		SET lockout_end = $2,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, end)
	return err
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, passwordHash)
	return err
}

func (r *PostgresUserRepository) UpdateSecurityStamp(ctx context.Context, id uuid.UUID, stamp string) error {
	query := `
		UPDATE users
		SET security_stamp = $2,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, stamp)
	return err
}

func (r *PostgresUserRepository) MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET email_confirmed = TRUE,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *PostgresUserRepository) FindUserByExternalLogin(ctx context.Context, provider, subjectID string) (User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.phone_number, u.password_hash, u.email_confirmed,
		       u.failed_access_count, u.lockout_end, u.security_stamp, u.created_at, u.updated_at
		FROM users u
		JOIN external_logins el ON el.user_id = u.id
		WHERE el.provider = $1 AND el.subject_id = $2 AND u.deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, provider, subjectID))
}

func (r *PostgresUserRepository) AddExternalLogin(ctx context.Context, userID uuid.UUID, provider, subjectID string) (ExternalLogin, error) {
	query := `
		INSERT INTO external_logins (user_id, provider, subject_id)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, provider, subject_id, created_at`
	var link ExternalLogin
	err := r.db.QueryRow(ctx, query, userID, provider, subjectID).Scan(
		&link.ID,
		&link.UserID,
		&link.Provider,
		&link.SubjectID,
		&link.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ExternalLogin{}, ErrDuplicateExternalLogin
		}
		return ExternalLogin{}, err
	}
	return link, nil
}
