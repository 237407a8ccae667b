package service

import (
	"errors"
	"strconv"
	"testing"

	"github.com/prepexam/prepexam-backend/internal/model"
)

func key(options ...string) map[string]string {
	k := make(map[string]string, len(options))
	for i, opt := range options {
		k[strconv.Itoa(i)] = opt
	}
	return k
}

func TestGrade(t *testing.T) {
	fiveQuestions := key("A", "B", "C", "D", "A")

	cases := []struct {
		name    string
		key     map[string]string
		answers model.AnswerMap
		want    model.Score
	}{
		{
			name:    "four of five",
			key:     fiveQuestions,
			answers: model.AnswerMap{"0": "A", "1": "B", "2": "C", "3": "D", "4": "B"},
			want:    model.Score{Correct: 4, Total: 5, Accuracy: 80, Points: 40},
		},
		{
			name:    "all correct",
			key:     fiveQuestions,
			answers: model.AnswerMap{"0": "A", "1": "B", "2": "C", "3": "D", "4": "A"},
			want:    model.Score{Correct: 5, Total: 5, Accuracy: 100, Points: 50},
		},
		{
			name:    "unanswered questions count as incorrect",
			key:     fiveQuestions,
			answers: model.AnswerMap{"0": "A"},
			want:    model.Score{Correct: 1, Total: 5, Accuracy: 20, Points: 10},
		},
		{
			name:    "empty answer map",
			key:     fiveQuestions,
			answers: model.AnswerMap{},
			want:    model.Score{Correct: 0, Total: 5, Accuracy: 0, Points: 0},
		},
		{
			name:    "comparison ignores case and surrounding whitespace",
			key:     key("Paris", "Berlin"),
			answers: model.AnswerMap{"0": "  paris ", "1": "BERLIN"},
			want:    model.Score{Correct: 2, Total: 2, Accuracy: 100, Points: 20},
		},
		{
			name:    "accuracy rounds half away from zero",
			key:     key("A", "B", "C", "D", "A", "B", "C", "D"),
			answers: model.AnswerMap{"0": "A", "1": "B", "2": "C"},
			// 3/8 = 37.5% rounds to 38.
			want: model.Score{Correct: 3, Total: 8, Accuracy: 38, Points: 30},
		},
		{
			name:    "zero questions yields zero accuracy",
			key:     map[string]string{},
			answers: model.AnswerMap{},
			want:    model.Score{Correct: 0, Total: 0, Accuracy: 0, Points: 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(tc.key, tc.answers)
			if got != tc.want {
				t.Errorf("Grade() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestValidateAnswers(t *testing.T) {
	answerKey := key("A", "B", "C")

	valid := []model.AnswerMap{
		{},
		{"0": "A"},
		{"0": "A", "1": "B", "2": "C"},
	}
	for _, answers := range valid {
		if err := ValidateAnswers(answerKey, answers); err != nil {
			t.Errorf("ValidateAnswers(%v) = %v, want nil", answers, err)
		}
	}

	invalid := []model.AnswerMap{
		{"3": "A"},            // out of range
		{"-1": "A"},           // negative
		{"one": "A"},          // non-numeric
		{"0": "A", "99": "B"}, // one bad key poisons the map
	}
	for _, answers := range invalid {
		err := ValidateAnswers(answerKey, answers)
		if !errors.Is(err, ErrMalformedAnswers) {
			t.Errorf("ValidateAnswers(%v) = %v, want ErrMalformedAnswers", answers, err)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	cases := map[string]string{
		"  Paris  ":   "paris",
		"BERLIN":      "berlin",
		"":            "",
		"\tMadrid\n":  "madrid",
		"São Paulo":   "são paulo",
		"already low": "already low",
	}
	for in, want := range cases {
		if got := normalizeAnswer(in); got != want {
			t.Errorf("normalizeAnswer(%q) = %q, want %q", in, got, want)
		}
	}
}
