package database

import (
	"context"
	"errors"
	"fmt"

	"hahornah-bot/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, score, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Score, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// Create registers a new user with score 0. The username is validated before
// touching the database: charset first, then length bounds.
func (r *UserRepository) Create(ctx context.Context, id int64, username string) (*models.User, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, username, score)
		VALUES ($1, $2, 0)
		RETURNING id, username, score, created_at
	`
	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, id, username).Scan(
		&user.ID, &user.Username, &user.Score, &user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user %d: %w", id, err)
	}
	return &user, nil
}

// Rank is the user's 1-based position with all users ordered ascending by
// score. Ties break on id, which is implementation-defined and fine here.
func (r *UserRepository) Rank(ctx context.Context, id int64) (int, error) {
	query := `
		SELECT rank FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY score ASC, id ASC) AS rank
			FROM users
		) ranked
		WHERE id = $1
	`
	var rank int
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to rank user %d: %w", id, err)
	}
	return rank, nil
}

// Top returns the first n users ordered ascending by score, so the lowest
// scores come first. /top10 has always listed users this way; the ordering
// is deliberately left alone.
func (r *UserRepository) Top(ctx context.Context, n int) ([]models.User, error) {
	query := `
		SELECT id, username, score, created_at
		FROM users
		ORDER BY score ASC, id ASC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Score, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
