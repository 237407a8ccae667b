package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerMap maps a question index (rendered as a string, "0".."n-1") to the
// option string the candidate selected. Missing keys are unanswered questions.
type AnswerMap map[string]string

// Submission is the stored answer snapshot for one (user, test) pair.
// A re-attempt overwrites the row in place; only the newest snapshot survives.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	TestID    uuid.UUID `json:"test_id"`
	Answers   AnswerMap `json:"answers"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Score is derived from Test + AnswerMap on every grading call, never persisted.
type Score struct {
	Correct  int `json:"correct"`
	Total    int `json:"total"`
	Accuracy int `json:"accuracy"`
	Points   int `json:"points"`
}

// SubmitRequest is the payload for the REST submission endpoint. Reason is set
// only for auto-submissions (timer expiry, switch limit).
type SubmitRequest struct {
	Answers AnswerMap `json:"answers" binding:"required"`
	Reason  *string   `json:"reason" binding:"omitempty,max=100"`
}
