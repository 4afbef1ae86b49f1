package emailverification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfirmationToken is a single-use token tied to one user's email address.
type ConfirmationToken struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Token       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConfirmedAt *time.Time
}

// TokenRepository stores confirmation tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (ConfirmationToken, error)
	GetToken(ctx context.Context, token string) (ConfirmationToken, error)
	MarkTokenConfirmed(ctx context.Context, tokenID uuid.UUID) error
}

// PostgresTokenRepository implements TokenRepository on a pgx pool.
type PostgresTokenRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTokenRepository(db *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

func (r *PostgresTokenRepository) CreateToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (ConfirmationToken, error) {
	query := `
		INSERT INTO email_confirmation_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token, created_at, expires_at, confirmed_at`

	var ct ConfirmationToken
	err := r.db.QueryRow(ctx, query, userID, token, expiresAt).Scan(
		&ct.ID,
		&ct.UserID,
		&ct.Token,
		&ct.CreatedAt,
		&ct.ExpiresAt,
		&ct.ConfirmedAt,
	)
	return ct, err
}

func (r *PostgresTokenRepository) GetToken(ctx context.Context, token string) (ConfirmationToken, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at, confirmed_at
		FROM email_confirmation_tokens
		WHERE token = $1`

	var ct ConfirmationToken
	err := r.db.QueryRow(ctx, query, token).Scan(
		&ct.ID,
		&ct.UserID,
		&ct.Token,
		&ct.CreatedAt,
		&ct.ExpiresAt,
		&ct.ConfirmedAt,
	)
	if err == pgx.ErrNoRows {
		return ConfirmationToken{}, ErrTokenNotFound
	}
	return ct, err
}

// MarkTokenConfirmed stamps the token; the WHERE clause makes a second
// redemption report cleanly instead of re-applying effects.
func (r *PostgresTokenRepository) MarkTokenConfirmed(ctx context.Context, tokenID uuid.UUID) error {
	query := `
		UPDATE email_confirmation_tokens
		SET confirmed_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1 AND confirmed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenAlreadyUsed
	}
	return nil
}

// InMemTokenRepository is the in-memory TokenRepository used in tests.
type InMemTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*ConfirmationToken
}

func NewInMemTokenRepository() *InMemTokenRepository {
	return &InMemTokenRepository{tokens: make(map[string]*ConfirmationToken)}
}

func (r *InMemTokenRepository) CreateToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (ConfirmationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ct := &ConfirmationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	r.tokens[token] = ct
	return *ct, nil
}

func (r *InMemTokenRepository) GetToken(ctx context.Context, token string) (ConfirmationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ct, ok := r.tokens[token]; ok {
		return *ct, nil
	}
	return ConfirmationToken{}, ErrTokenNotFound
}

func (r *InMemTokenRepository) MarkTokenConfirmed(ctx context.Context, tokenID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ct := range r.tokens {
		if ct.ID == tokenID {
			if ct.ConfirmedAt != nil {
				return ErrTokenAlreadyUsed
			}
			now := time.Now().UTC()
			ct.ConfirmedAt = &now
			return nil
		}
	}
	return ErrTokenNotFound
}
