package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// badgeRule is one independently idempotent eligibility rule, evaluated after
// every graded submission.
type badgeRule struct {
	name        string
	description string
	icon        string
	eligible    func(score model.Score, submissionCount int) bool
}

var badgeRules = []badgeRule{
	{
		name:        model.BadgeHighAchiever,
		description: "Scored 80% or higher on a test",
		icon:        "medal",
		eligible: func(s model.Score, _ int) bool {
			return s.Accuracy >= 80
		},
	},
	{
		name:        model.BadgePerfectScore,
		description: "Answered every question correctly",
		icon:        "trophy",
		eligible: func(s model.Score, _ int) bool {
			return s.Total > 0 && s.Correct == s.Total
		},
	},
	{
		name:        model.BadgeDedicatedLearner,
		description: "Completed 5 or more tests",
		icon:        "flame",
		eligible: func(_ model.Score, submissions int) bool {
			return submissions >= 5
		},
	},
}

// EligibleBadgeNames returns the badge names a score/submission-count pair
// qualifies for. Awarding itself is idempotent at the storage layer.
func EligibleBadgeNames(score model.Score, submissionCount int) []string {
	var names []string
	for _, rule := range badgeRules {
		if rule.eligible(score, submissionCount) {
			names = append(names, rule.name)
		}
	}
	return names
}

// ProgressionService accrues points, rank tiers, and badges from graded
// submissions.
type ProgressionService struct {
	progressRepo   *repository.ProgressRepository
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewProgressionService creates a new ProgressionService.
func NewProgressionService(
	progressRepo *repository.ProgressRepository,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ProgressionService {
	return &ProgressionService{
		progressRepo:   progressRepo,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "progression_service").Logger(),
	}
}

// Apply increments the user's cumulative points by the score's points and
// evaluates every badge rule against the updated state. Returns the new
// progress and the badges newly earned by this submission.
func (s *ProgressionService) Apply(ctx context.Context, userID int, score model.Score) (*model.UserProgress, []model.Badge, error) {
	progress, err := s.progressRepo.AddPoints(ctx, userID, score.Points)
	if err != nil {
		return nil, nil, err
	}

	submissionCount, err := s.submissionRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	newBadges := []model.Badge{}
	for _, rule := range badgeRules {
		if !rule.eligible(score, submissionCount) {
			continue
		}
		badge := &model.Badge{
			UserID:      userID,
			Name:        rule.name,
			Description: rule.description,
			Icon:        rule.icon,
		}
		awarded, err := s.progressRepo.AwardBadge(ctx, badge)
		if err != nil {
			return nil, nil, err
		}
		if awarded {
			s.log.Info().
				Int("user_id", userID).
				Str("badge", rule.name).
				Msg("Badge awarded")
			newBadges = append(newBadges, *badge)
		}
	}

	return progress, newBadges, nil
}

// GetProgress retrieves a user's cumulative progress and badges.
func (s *ProgressionService) GetProgress(ctx context.Context, userID int) (*model.UserProgress, []model.Badge, error) {
	progress, err := s.progressRepo.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	badges, err := s.progressRepo.ListBadges(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if badges == nil {
		badges = []model.Badge{}
	}
	return progress, badges, nil
}

// notificationPayload is the queue message drained by the notification worker.
type notificationPayload struct {
	UserID   int    `json:"user_id"`
	TestID   string `json:"test_id"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Accuracy int    `json:"accuracy"`
	Points   int    `json:"points"`
}

// EnqueueResultNotification pushes a result-email job onto the Redis queue.
// Best effort: a failed enqueue is logged and swallowed, never surfaced to
// the submission response.
func (s *ProgressionService) EnqueueResultNotification(ctx context.Context, userID int, testID uuid.UUID, score model.Score) {
	payload, _ := json.Marshal(notificationPayload{
		UserID:   userID,
		TestID:   testID.String(),
		Correct:  score.Correct,
		Total:    score.Total,
		Accuracy: score.Accuracy,
		Points:   score.Points,
	})

	if err := s.rdb.RPush(ctx, config.WorkerKey.NotificationsQueue, payload).Err(); err != nil {
		s.log.Warn().
			Err(err).
			Int("user_id", userID).
			Str("test_id", testID.String()).
			Msg("Failed to enqueue result notification")
	}
}
