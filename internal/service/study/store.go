// Package study persists generated study sessions and runs the generation
// cycle that produces them.
package study

import (
	"context"
	"database/sql"
	"fmt"

	"studyhelper/internal/apperr"
	"studyhelper/internal/models"
	"studyhelper/internal/storage"
)

// Store is the append-only record of completed generation cycles.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore wraps an open database handle. driver selects the migration dialect.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Initialize creates the progress table when absent.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &apperr.StorageError{Op: "initialize", Err: err}
	}
	if err := storage.Migrate(s.db, s.driver); err != nil {
		return &apperr.StorageError{Op: "initialize", Err: err}
	}
	return nil
}

// Save appends one session row and returns it with its assigned id.
func (s *Store) Save(ctx context.Context, filename, summary, flashcards, quiz string) (*models.StudySession, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (filename, summary, flashcards, quiz) VALUES (?, ?, ?, ?)`,
		filename, summary, flashcards, quiz,
	)
	if err != nil {
		return nil, &apperr.StorageError{Op: "save", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &apperr.StorageError{Op: "save", Err: fmt.Errorf("session id: %w", err)}
	}
	return &models.StudySession{
		ID:         id,
		Filename:   filename,
		Summary:    summary,
		Flashcards: flashcards,
		Quiz:       quiz,
	}, nil
}

// ListAll returns every stored session in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]models.SessionPreview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, summary FROM progress ORDER BY id ASC`)
	if err != nil {
		return nil, &apperr.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var sessions []models.SessionPreview
	for rows.Next() {
		var (
			p        models.SessionPreview
			filename sql.NullString
			summary  sql.NullString
		)
		if err := rows.Scan(&p.ID, &filename, &summary); err != nil {
			return nil, &apperr.StorageError{Op: "list", Err: fmt.Errorf("scan session: %w", err)}
		}
		p.Filename = filename.String
		p.Summary = summary.String
		sessions = append(sessions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperr.StorageError{Op: "list", Err: err}
	}
	return sessions, nil
}

// Get loads one full session.
func (s *Store) Get(ctx context.Context, id int64) (*models.StudySession, error) {
	var session models.StudySession
	var filename, summary, flashcards, quiz sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, summary, flashcards, quiz FROM progress WHERE id = ?`, id,
	).Scan(&session.ID, &filename, &summary, &flashcards, &quiz)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, &apperr.StorageError{Op: "get", Err: err}
	}
	session.Filename = filename.String
	session.Summary = summary.String
	session.Flashcards = flashcards.String
	session.Quiz = quiz.String
	return &session, nil
}
