package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTokenNotFound is returned when a key does not match a stored token.
var ErrTokenNotFound = errors.New("token not found")

// Token is an opaque bearer credential. A user holds at most one.
type Token struct {
	Key       string
	UserID    int64
	CreatedAt time.Time
}

// GenerateKey returns 40 hex characters of randomness.
func GenerateKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TokenRepository persists tokens.
type TokenRepository interface {
	// GetOrCreate returns the user's token, storing candidate when none exists.
	GetOrCreate(ctx context.Context, candidate Token) (Token, error)
	FindByKey(ctx context.Context, key string) (Token, error)
	DeleteByKey(ctx context.Context, key string) error
}

// PostgresTokenRepository stores tokens in the auth_tokens table.
type PostgresTokenRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTokenRepository builds a Postgres-backed token repository.
func NewPostgresTokenRepository(db *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

// GetOrCreate inserts candidate unless the user already has a token, and returns the stored one.
func (r *PostgresTokenRepository) GetOrCreate(ctx context.Context, candidate Token) (Token, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO auth_tokens (key, user_id, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO NOTHING`, candidate.Key, candidate.UserID, candidate.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Token{}, errors.New("token owner does not exist")
		}
		return Token{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = $1`, candidate.UserID)
	return scanToken(row)
}

// FindByKey resolves a token by its key.
func (r *PostgresTokenRepository) FindByKey(ctx context.Context, key string) (Token, error) {
	return scanToken(r.db.QueryRow(ctx, `SELECT key, user_id, created_at FROM auth_tokens WHERE key = $1`, key))
}

// DeleteByKey removes the token.
func (r *PostgresTokenRepository) DeleteByKey(ctx context.Context, key string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func scanToken(row pgx.Row) (Token, error) {
	var t Token
	if err := row.Scan(&t.Key, &t.UserID, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

type memoryTokenRepository struct {
	mu     sync.RWMutex
	byKey  map[string]Token
	byUser map[int64]string
}

// NewMemoryTokenRepository builds an in-memory token store for development and tests.
func NewMemoryTokenRepository() TokenRepository {
	return &memoryTokenRepository{byKey: make(map[string]Token), byUser: make(map[int64]string)}
}

func (r *memoryTokenRepository) GetOrCreate(_ context.Context, candidate Token) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.byUser[candidate.UserID]; ok {
		return r.byKey[key], nil
	}
	r.byKey[candidate.Key] = candidate
	r.byUser[candidate.UserID] = candidate.Key
	return candidate, nil
}

func (r *memoryTokenRepository) FindByKey(_ context.Context, key string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byKey[key]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return t, nil
}

func (r *memoryTokenRepository) DeleteByKey(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byKey[key]
	if !ok {
		return ErrTokenNotFound
	}
	delete(r.byKey, key)
	delete(r.byUser, t.UserID)
	return nil
}
