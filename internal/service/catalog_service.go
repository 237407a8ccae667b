package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrTestNotFound     = errors.New("test not found or not published")
	ErrNotTestAuthor    = errors.New("not the author of this test")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrNoQuestions      = errors.New("test has no questions")
	ErrBadAnswerKey     = errors.New("correct option is not one of the question options")
	ErrAnswerKeyMissing = errors.New("answer key not available")
)

// CatalogService handles the test catalog and its Redis hot path. Published
// tests live in Redis as a candidate payload (no correct answers) plus an
// answer-key hash keyed by question index, so session starts and grading
// never touch PostgreSQL.
type CatalogService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListPublished retrieves all published tests for the candidate catalog.
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.Test, error) {
	return s.testRepo.ListPublished(ctx)
}

// Create inserts a new test as DRAFT.
func (s *CatalogService) Create(ctx context.Context, test *model.Test) error {
	return s.testRepo.Create(ctx, test)
}

// ReplaceQuestions bulk-replaces a draft test's question set. Rejects any
// question whose correct option is not among its options; grading assumes
// that invariant.
func (s *CatalogService) ReplaceQuestions(ctx context.Context, testID uuid.UUID, authorID int, questions []model.QuestionInput) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	for _, q := range questions {
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectOption {
				found = true
				break
			}
		}
		if !found {
			return ErrBadAnswerKey
		}
	}

	return s.questionRepo.ReplaceAll(ctx, testID, questions)
}

// Publish changes test status to PUBLISHED and caches the payload + answer
// key in Redis. This is the critical path that populates the hot lane.
func (s *CatalogService) Publish(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test published")
	return nil
}

// Delete removes a draft test.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// WarmTestCache loads a test's payload and answer key from PostgreSQL into
// Redis. Used by Publish and PrewarmAllCaches.
func (s *CatalogService) WarmTestCache(ctx context.Context, test *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build candidate-facing payload (without correct answers).
	candidateQuestions := make([]model.QuestionForCandidate, len(questions))
	for i, q := range questions {
		candidateQuestions[i] = model.QuestionForCandidate{
			QuestionText: q.QuestionText,
			Options:      q.Options,
			OrderNum:     q.OrderNum,
		}
	}

	payload := model.TestPayload{
		TestID:          test.ID,
		Title:           test.Title,
		DurationMinutes: test.DurationMinutes,
		Questions:       candidateQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Build answer key hash keyed by question index for RAM grading.
	answerKey := make(map[string]interface{}, len(questions))
	for i, q := range questions {
		answerKey[strconv.Itoa(i)] = q.CorrectOption
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(test.ID.String()), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.TestAnswerKeyKey(test.ID.String()))
	pipe.HSet(ctx, config.CacheKey.TestAnswerKeyKey(test.ID.String()), answerKey)
	pipe.Set(ctx, config.CacheKey.TestDurationKey(test.ID.String()), test.DurationMinutes, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published tests into Redis on application
// startup, so the first candidate never hits a cold cache.
func (s *CatalogService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetTestPayload retrieves the cached candidate payload from Redis.
func (s *CatalogService) GetTestPayload(ctx context.Context, testID uuid.UUID) (*model.TestPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the answer key (question index → correct option)
// from Redis, falling back to PostgreSQL on a cache miss and self-healing
// the cache.
func (s *CatalogService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKeyKey(testID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) > 0 {
		return result, nil
	}

	// Cache miss (evicted, or Redis flushed). Rebuild from the source of truth.
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnswerKeyMissing, err)
	}
	if test.Status != model.TestStatusPublished {
		return nil, ErrTestNotFound
	}
	if err := s.WarmTestCache(ctx, test); err != nil {
		return nil, fmt.Errorf("rewarm cache: %w", err)
	}

	result, err = s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKeyKey(testID.String())).Result()
	if err != nil || len(result) == 0 {
		return nil, ErrAnswerKeyMissing
	}
	return result, nil
}
