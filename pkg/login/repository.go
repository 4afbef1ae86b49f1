package login

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetToken is a single-use reset token. SecurityStamp is captured
// at issuance; regenerating the user's stamp invalidates the token.
type PasswordResetToken struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Token         string
	SecurityStamp string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	UsedAt        *time.Time
}

// ResetTokenParams carries the fields needed to store a new reset token.
type ResetTokenParams struct {
	UserID        uuid.UUID
	Token         string
	SecurityStamp string
	ExpiresAt     time.Time
}

// ResetTokenRepository stores password reset tokens.
type ResetTokenRepository interface {
	InitPasswordResetToken(ctx context.Context, arg ResetTokenParams) (PasswordResetToken, error)
	GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error)
	MarkPasswordResetTokenUsed(ctx context.Context, tokenID uuid.UUID) error
}

// PostgresResetTokenRepository implements ResetTokenRepository on a pgx pool.
type PostgresResetTokenRepository struct {
	db *pgxpool.Pool
}

func NewPostgresResetTokenRepository(db *pgxpool.Pool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{db: db}
}

func (r *PostgresResetTokenRepository) InitPasswordResetToken(ctx context.Context, arg ResetTokenParams) (PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, security_stamp, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token, security_stamp, created_at, expires_at, used_at`

	var rt PasswordResetToken
	err := r.db.QueryRow(ctx, query, arg.UserID, arg.Token, arg.SecurityStamp, arg.ExpiresAt).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Token,
		&rt.SecurityStamp,
		&rt.CreatedAt,
		&rt.ExpiresAt,
		&rt.UsedAt,
	)
	return rt, err
}

func (r *PostgresResetTokenRepository) GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, security_stamp, created_at, expires_at, used_at
		FROM password_reset_tokens
		WHERE token = $1`

	var rt PasswordResetToken
	err := r.db.QueryRow(ctx, query, token).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Token,
		&rt.SecurityStamp,
		&rt.CreatedAt,
		&rt.ExpiresAt,
		&rt.UsedAt,
	)
	if err == pgx.ErrNoRows {
		return PasswordResetToken{}, ErrResetInvalid
	}
	return rt, err
}

func (r *PostgresResetTokenRepository) MarkPasswordResetTokenUsed(ctx context.Context, tokenID uuid.UUID) error {
	query := `
		UPDATE password_reset_tokens
		SET used_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1 AND used_at IS NULL`

	tag, err := r.db.Exec(ctx, query, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResetInvalid
	}
	return nil
}

// InMemResetTokenRepository backs tests and the demo mode.
type InMemResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*PasswordResetToken
}

func NewInMemResetTokenRepository() *InMemResetTokenRepository {
	return &InMemResetTokenRepository{tokens: make(map[string]*PasswordResetToken)}
}

func (r *InMemResetTokenRepository) InitPasswordResetToken(ctx context.Context, arg ResetTokenParams) (PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt := &PasswordResetToken{
		ID:            uuid.New(),
		UserID:        arg.UserID,
		Token:         arg.Token,
		SecurityStamp: arg.SecurityStamp,
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     arg.ExpiresAt,
	}
	r.tokens[arg.Token] = rt
	return *rt, nil
}

func (r *InMemResetTokenRepository) GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rt, ok := r.tokens[token]; ok {
		return *rt, nil
	}
	return PasswordResetToken{}, ErrResetInvalid
}

func (r *InMemResetTokenRepository) MarkPasswordResetTokenUsed(ctx context.Context, tokenID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.tokens {
		if rt.ID == tokenID {
			if rt.UsedAt != nil {
				return ErrResetInvalid
			}
			now := time.Now().UTC()
			rt.UsedAt = &now
			return nil
		}
	}
	return ErrResetInvalid
}
