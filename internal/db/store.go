package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mindmate/internal/study"
)

// SessionStore is a study.Store backed by the study_sessions table. The
// session is kept as JSON, except for the report PDF which has its own column.
type SessionStore struct {
	q *Queries
}

var _ study.Store = (*SessionStore)(nil)

func NewSessionStore(q *Queries) *SessionStore {
	return &SessionStore{q: q}
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*study.Session, error) {
	row, err := s.q.GetStudySession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, study.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load study session %s: %w", id, err)
	}

	var sess study.Session
	if err := json.Unmarshal(row.State, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode study session %s: %w", id, err)
	}
	sess.ID = row.ID
	sess.Report = row.Report
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *study.Session) error {
	state := sess.Clone()
	state.Report = nil
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode study session %s: %w", sess.ID, err)
	}

	err = s.q.UpsertStudySession(ctx, UpsertStudySessionParams{
		ID:           sess.ID,
		DocumentName: sess.DocumentName,
		State:        data,
		Report:       sess.Report,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save study session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.q.DeleteStudySession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete study session %s: %w", id, err)
	}
	return nil
}

// Prune removes sessions not updated within maxAge and returns how many were
// deleted.
func (s *SessionStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.q.DeleteStudySessionsBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to prune study sessions: %w", err)
	}
	return n, nil
}
