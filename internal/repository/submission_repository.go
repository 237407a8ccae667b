package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Upsert stores the answer snapshot for (user, test). The row is keyed by a
// unique constraint on (user_id, test_id); a re-attempt overwrites the
// previous snapshot in a single atomic statement, so two concurrent submits
// for the same pair can never produce two rows.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *model.Submission) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (user_id, test_id, answers, reason)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, test_id)
		 DO UPDATE SET answers = EXCLUDED.answers,
		               reason = EXCLUDED.reason,
		               updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		s.UserID, s.TestID, answers, s.Reason,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByUserAndTest retrieves the stored submission for a (user, test) pair.
func (r *SubmissionRepository) GetByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_id, answers, reason, created_at, updated_at
		 FROM submissions
		 WHERE user_id = $1 AND test_id = $2`, userID, testID,
	).Scan(&s.ID, &s.UserID, &s.TestID, &answers, &s.Reason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return s, nil
}

// CountByUser returns the number of distinct tests the user has submitted.
func (r *SubmissionRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}
