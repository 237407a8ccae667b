package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the possible states of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test represents a practice test. Immutable for the duration of a session:
// published tests are only replaced through re-publish, never edited in place.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	AuthorID        int        `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          TestStatus `json:"status"`
	QuestionCount   int        `json:"question_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Question represents a single test question. CorrectOption must equal one of
// Options; the authoring endpoint enforces that, the grading path assumes it.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Explanation   *string   `json:"explanation,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// TestPayload is the Redis-cached payload sent to candidates (no correct answers).
type TestPayload struct {
	TestID          uuid.UUID              `json:"test_id"`
	Title           string                 `json:"title"`
	DurationMinutes int                    `json:"duration_minutes"`
	Questions       []QuestionForCandidate `json:"questions"`
}

// QuestionForCandidate is a question without the correct answer.
type QuestionForCandidate struct {
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	OrderNum     int      `json:"order_num"`
}

// CreateTestRequest is the payload for creating a new draft test.
type CreateTestRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// QuestionInput is one question in a ReplaceQuestionsRequest.
type QuestionInput struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=10,dive,required,max=500"`
	CorrectOption string   `json:"correct_option" binding:"required,max=500"`
	Explanation   *string  `json:"explanation" binding:"omitempty,max=2000"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a draft's questions.
type ReplaceQuestionsRequest struct {
	Questions []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}
