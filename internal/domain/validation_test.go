package domain

import (
	"errors"
	"testing"
)

func validQuestion(id string) Question {
	return Question{
		ID:            id,
		Text:          "What is 2 + 2?",
		Type:          MultipleChoice,
		Options:       []string{"3", "4", "5", "22"},
		CorrectAnswer: "4",
		Points:        1,
	}
}

func TestValidateQuestion(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(q *Question)
		want   FailureReason
	}{
		{"valid", func(q *Question) {}, ""},
		{"missing text", func(q *Question) { q.Text = "   " }, QuestionMissingText},
		{"missing answer", func(q *Question) { q.CorrectAnswer = "" }, QuestionMissingAnswer},
		{"blank option", func(q *Question) { q.Options[2] = " " }, OptionIncomplete},
		{"no options", func(q *Question) { q.Options = nil }, OptionIncomplete},
		{"answer not an option", func(q *Question) { q.CorrectAnswer = "four" }, AnswerNotInOptions},
		{"zero points", func(q *Question) { q.Points = 0 }, InvalidPoints},
		{"true-false", func(q *Question) {
			q.Type = TrueFalse
			q.Options = []string{"True", "False"}
			q.CorrectAnswer = "False"
		}, ""},
		{"true-false wrong options", func(q *Question) {
			q.Type = TrueFalse
			q.Options = []string{"Yes", "No"}
			q.CorrectAnswer = "Yes"
		}, OptionIncomplete},
		{"true-false answer outside pair", func(q *Question) {
			q.Type = TrueFalse
			q.Options = []string{"True", "False"}
			q.CorrectAnswer = "true"
		}, AnswerNotInOptions},
		{"short answer ignores options", func(q *Question) {
			q.Type = ShortAnswer
			q.Options = []string{"", ""}
			q.CorrectAnswer = "Paris"
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := validQuestion("q1")
			tc.mutate(&q)
			got := ValidateQuestion(q)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected valid, got %v", got)
				}
				return
			}
			if got == nil || got.Reason != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, got)
			}
			if got.QuestionID != "q1" {
				t.Fatalf("expected failure to name q1, got %q", got.QuestionID)
			}
		})
	}
}

func TestValidateQuizAggregatesFailures(t *testing.T) {
	failures := ValidateQuiz(Quiz{Title: " "})
	if len(failures) != 2 || failures[0].Reason != EmptyTitle || failures[1].Reason != NoQuestions {
		t.Fatalf("expected EmptyTitle and NoQuestions, got %v", failures)
	}

	bad := validQuestion("q2")
	bad.Text = ""
	quiz := Quiz{Title: "Math", Questions: []Question{validQuestion("q1"), bad}}
	failures = ValidateQuiz(quiz)
	if len(failures) != 1 || failures[0].Reason != QuestionMissingText || failures[0].QuestionID != "q2" {
		t.Fatalf("expected one failure for q2, got %v", failures)
	}

	again := ValidateQuiz(quiz)
	if len(again) != len(failures) || again[0] != failures[0] {
		t.Fatalf("validation is not deterministic: %v vs %v", failures, again)
	}
}

func TestValidateQuizPassesCompleteQuiz(t *testing.T) {
	quiz := Quiz{Title: "Math", Questions: []Question{validQuestion("q1"), validQuestion("q2")}}
	if failures := ValidateQuiz(quiz); len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	var err error = &ValidationError{Failures: []Failure{{Reason: EmptyTitle}}}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is to match ErrValidation")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reasons()[0] != EmptyTitle {
		t.Fatalf("expected EmptyTitle reason, got %v", err)
	}
}
