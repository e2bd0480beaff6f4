package database

import (
	"context"
	"errors"
	"fmt"

	"hahornah-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

type JokeRepository struct {
	db *DB
}

func NewJokeRepository(db *DB) *JokeRepository {
	return &JokeRepository{db: db}
}

// Create validates the body and inserts the joke with the next sequential id.
// Ids start at 0 on an empty table.
func (r *JokeRepository) Create(ctx context.Context, body string, authorID int64) (*models.Joke, error) {
	if err := models.ValidateJokeBody(body); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO jokes (id, body, author_id, vote_count)
		VALUES ((SELECT COALESCE(MAX(id) + 1, 0) FROM jokes), $1, $2, 0)
		RETURNING id, body, author_id, vote_count, created_at
	`
	var joke models.Joke
	err := r.db.Pool.QueryRow(ctx, query, body, authorID).Scan(
		&joke.ID, &joke.Body, &joke.AuthorID, &joke.VoteCount, &joke.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create joke: %w", err)
	}
	return &joke, nil
}

func (r *JokeRepository) All(ctx context.Context) ([]models.Joke, error) {
	query := `
		SELECT id, body, author_id, vote_count, created_at
		FROM jokes
		ORDER BY id
	`
	return r.scanMany(ctx, query)
}

const unseenFilter = `
	author_id <> $1
	AND NOT EXISTS (
		SELECT 1 FROM votes v
		WHERE v.joke_id = jokes.id AND v.user_id = $1
	)
`

// Unseen returns, in random order, every joke the user neither wrote nor
// already voted on.
func (r *JokeRepository) Unseen(ctx context.Context, userID int64) ([]models.Joke, error) {
	query := `
		SELECT id, body, author_id, vote_count, created_at
		FROM jokes
		WHERE ` + unseenFilter + `
		ORDER BY RANDOM()
	`
	return r.scanMany(ctx, query, userID)
}

// RandomUnseen picks a uniformly random joke the user neither wrote nor
// already voted on.
func (r *JokeRepository) RandomUnseen(ctx context.Context, userID int64) (*models.Joke, error) {
	query := `
		SELECT id, body, author_id, vote_count, created_at
		FROM jokes
		WHERE ` + unseenFilter + `
		ORDER BY RANDOM()
		LIMIT 1
	`
	return r.scanOne(ctx, query, ErrNoJokes, userID)
}

// BestUnseen returns the first unseen joke ordered ascending by vote count,
// so the lowest-rated unseen joke wins. /best_joke has always sorted this
// way; the ordering is deliberately left alone.
func (r *JokeRepository) BestUnseen(ctx context.Context, userID int64) (*models.Joke, error) {
	query := `
		SELECT id, body, author_id, vote_count, created_at
		FROM jokes
		WHERE ` + unseenFilter + `
		ORDER BY vote_count ASC, id ASC
		LIMIT 1
	`
	return r.scanOne(ctx, query, ErrNoJokes, userID)
}

// RandomFavorite picks a uniformly random joke the user voted up.
func (r *JokeRepository) RandomFavorite(ctx context.Context, userID int64) (*models.Joke, error) {
	query := `
		SELECT j.id, j.body, j.author_id, j.vote_count, j.created_at
		FROM jokes j
		JOIN votes v ON v.joke_id = j.id
		WHERE v.user_id = $1 AND v.positive
		ORDER BY RANDOM()
		LIMIT 1
	`
	return r.scanOne(ctx, query, ErrNoFavorites, userID)
}

func (r *JokeRepository) scanMany(ctx context.Context, query string, args ...any) ([]models.Joke, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jokes: %w", err)
	}
	defer rows.Close()

	var jokes []models.Joke
	for rows.Next() {
		var joke models.Joke
		if err := rows.Scan(&joke.ID, &joke.Body, &joke.AuthorID, &joke.VoteCount, &joke.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan joke row: %w", err)
		}
		jokes = append(jokes, joke)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read joke rows: %w", err)
	}
	return jokes, nil
}

func (r *JokeRepository) scanOne(ctx context.Context, query string, empty error, userID int64) (*models.Joke, error) {
	var joke models.Joke
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&joke.ID, &joke.Body, &joke.AuthorID, &joke.VoteCount, &joke.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, empty
		}
		return nil, fmt.Errorf("failed to query joke: %w", err)
	}
	return &joke, nil
}

// Vote records a user's vote in one transaction: the vote row, the joke's
// vote_count and the author's score move together or not at all. Self votes
// and duplicates return ErrInvalidVote.
func (r *JokeRepository) Vote(ctx context.Context, userID, jokeID int64, positive bool) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var authorID int64
	err = tx.QueryRow(ctx, "SELECT author_id FROM jokes WHERE id = $1 FOR UPDATE", jokeID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrJokeNotFound
		}
		return fmt.Errorf("failed to lock joke %d: %w", jokeID, err)
	}

	if authorID == userID {
		return ErrInvalidVote
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO votes (user_id, joke_id, positive)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, joke_id) DO NOTHING
	`, userID, jokeID, positive)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidVote
	}

	delta := 1
	if !positive {
		delta = -1
	}

	if _, err := tx.Exec(ctx, "UPDATE jokes SET vote_count = vote_count + $1 WHERE id = $2", delta, jokeID); err != nil {
		return fmt.Errorf("failed to update joke vote count: %w", err)
	}

	if _, err := tx.Exec(ctx, "UPDATE users SET score = score + $1 WHERE id = $2", delta, authorID); err != nil {
		return fmt.Errorf("failed to update author score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit vote: %w", err)
	}
	return nil
}

// AuthorStats reports how many jokes the user submitted and their summed vote
// count, for the on-demand average in /profile.
func (r *JokeRepository) AuthorStats(ctx context.Context, userID int64) (jokes int, totalVotes int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(vote_count), 0)
		FROM jokes
		WHERE author_id = $1
	`
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&jokes, &totalVotes); err != nil {
		return 0, 0, fmt.Errorf("failed to get author stats for %d: %w", userID, err)
	}
	return jokes, totalVotes, nil
}

func (r *JokeRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM jokes").Scan(&count)
	return count, err
}
