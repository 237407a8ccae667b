package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/rs/zerolog"
)

// PointsPerCorrect is the fixed score weight per correct answer. No partial
// credit, no per-question weighting.
const PointsPerCorrect = 10

// ErrMalformedAnswers marks an answer payload the grading engine refuses to
// score: keys that are not question indexes of this test.
var ErrMalformedAnswers = errors.New("malformed answer payload")

// Result is the terminal outcome of a graded submission returned to the
// client: the fresh score, the updated cumulative progress, and any badges
// this submission newly earned.
type Result struct {
	Score     model.Score        `json:"score"`
	Progress  model.UserProgress `json:"progress"`
	NewBadges []model.Badge      `json:"new_badges"`
}

// GradingService scores answer maps against cached answer keys and stores
// the submission snapshot exactly once per (user, test).
type GradingService struct {
	catalog        *CatalogService
	submissionRepo *repository.SubmissionRepository
	progression    *ProgressionService
	log            zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	catalog *CatalogService,
	submissionRepo *repository.SubmissionRepository,
	progression *ProgressionService,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		catalog:        catalog,
		submissionRepo: submissionRepo,
		progression:    progression,
		log:            log.With().Str("component", "grading_service").Logger(),
	}
}

// normalizeAnswer trims whitespace and lowercases. Both sides of a
// comparison are reduced through this before matching.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Grade scores an answer map against an answer key (question index → correct
// option). Unanswered or mismatched questions count as incorrect. The score
// is computed fresh on every call and never cached.
func Grade(answerKey map[string]string, answers model.AnswerMap) model.Score {
	correct := 0
	total := len(answerKey)

	for idx, want := range answerKey {
		got, ok := answers[idx]
		if !ok {
			continue
		}
		if normalizeAnswer(got) == normalizeAnswer(want) {
			correct++
		}
	}

	accuracy := 0
	if total > 0 {
		accuracy = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return model.Score{
		Correct:  correct,
		Total:    total,
		Accuracy: accuracy,
		Points:   correct * PointsPerCorrect,
	}
}

// ValidateAnswers rejects answer maps whose keys are not indexes of this
// test's questions. An empty map is valid: an auto-submission may fire before
// the candidate answers anything.
func ValidateAnswers(answerKey map[string]string, answers model.AnswerMap) error {
	total := len(answerKey)
	for k := range answers {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= total {
			return fmt.Errorf("%w: key %q is not a question index", ErrMalformedAnswers, k)
		}
	}
	return nil
}

// Submit grades the answer map, upserts the submission row for (user, test),
// applies progression, and enqueues the best-effort result notification.
// Re-submitting overwrites the prior snapshot; only the newest score is
// retrievable afterwards.
func (s *GradingService) Submit(ctx context.Context, userID int, testID uuid.UUID, answers model.AnswerMap, reason *string) (*Result, error) {
	answerKey, err := s.catalog.GetAnswerKey(ctx, testID)
	if err != nil {
		return nil, err
	}

	if answers == nil {
		answers = model.AnswerMap{}
	}
	if err := ValidateAnswers(answerKey, answers); err != nil {
		return nil, err
	}

	score := Grade(answerKey, answers)

	sub := &model.Submission{
		UserID:  userID,
		TestID:  testID,
		Answers: answers,
		Reason:  reason,
	}
	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	progress, newBadges, err := s.progression.Apply(ctx, userID, score)
	if err != nil {
		return nil, fmt.Errorf("apply progression: %w", err)
	}

	// Side effect only: delivery failure never rolls back the submission.
	s.progression.EnqueueResultNotification(ctx, userID, testID, score)

	s.log.Info().
		Int("user_id", userID).
		Str("test_id", testID.String()).
		Int("correct", score.Correct).
		Int("total", score.Total).
		Int("accuracy", score.Accuracy).
		Msg("Submission graded")

	return &Result{
		Score:     score,
		Progress:  *progress,
		NewBadges: newBadges,
	}, nil
}

// GetSubmission retrieves the stored submission for (user, test).
func (s *GradingService) GetSubmission(ctx context.Context, userID int, testID uuid.UUID) (*model.Submission, error) {
	return s.submissionRepo.GetByUserAndTest(ctx, userID, testID)
}
