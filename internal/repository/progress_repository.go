package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// ProgressRepository handles cumulative points and badge data access.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// AddPoints atomically increments the user's cumulative points and returns the
// new total. The increment happens inside the upsert, not as read-then-write,
// so concurrent submissions can never lose points.
func (r *ProgressRepository) AddPoints(ctx context.Context, userID, points int) (*model.UserProgress, error) {
	p := &model.UserProgress{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_progress (user_id, points)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id)
		 DO UPDATE SET points = user_progress.points + EXCLUDED.points,
		               updated_at = NOW()
		 RETURNING points, updated_at`,
		userID, points,
	).Scan(&p.Points, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Rank = model.RankFor(p.Points)
	return p, nil
}

// Get retrieves the user's progress. A user with no submissions yet gets a
// zero-point Beginner record.
func (r *ProgressRepository) Get(ctx context.Context, userID int) (*model.UserProgress, error) {
	p := &model.UserProgress{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT points, updated_at FROM user_progress WHERE user_id = $1`, userID,
	).Scan(&p.Points, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		p.Rank = model.RankFor(0)
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	p.Rank = model.RankFor(p.Points)
	return p, nil
}

// AwardBadge inserts a badge if the user does not already hold it. Returns
// true when the badge was newly awarded. Keyed on the (user_id, name) unique
// constraint, so a rule firing twice can never produce two rows.
func (r *ProgressRepository) AwardBadge(ctx context.Context, b *model.Badge) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO badges (user_id, name, description, icon)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, name) DO NOTHING
		 RETURNING earned_at`,
		b.UserID, b.Name, b.Description, b.Icon,
	).Scan(&b.EarnedAt)
	if err == pgx.ErrNoRows {
		return false, nil // Already held
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListBadges retrieves all badges held by a user, newest first.
func (r *ProgressRepository) ListBadges(ctx context.Context, userID int) ([]model.Badge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, name, description, icon, earned_at
		 FROM badges
		 WHERE user_id = $1
		 ORDER BY earned_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []model.Badge
	for rows.Next() {
		var b model.Badge
		if err := rows.Scan(&b.UserID, &b.Name, &b.Description, &b.Icon, &b.EarnedAt); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
