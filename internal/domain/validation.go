package domain

import (
	"fmt"
	"strings"
)

// FailureReason is an enumerated validation failure code.
type FailureReason string

const (
	EmptyTitle            FailureReason = "EmptyTitle"
	NoQuestions           FailureReason = "NoQuestions"
	QuestionMissingText   FailureReason = "QuestionMissingText"
	QuestionMissingAnswer FailureReason = "QuestionMissingAnswer"
	OptionIncomplete      FailureReason = "OptionIncomplete"
	AnswerNotInOptions    FailureReason = "AnswerNotInOptions"
	InvalidPoints         FailureReason = "InvalidPoints"
)

// Failure is a single validation failure. QuestionID is empty for quiz-level failures.
type Failure struct {
	Reason     FailureReason `json:"reason"`
	QuestionID string        `json:"questionId,omitempty"`
}

func (f Failure) String() string {
	if f.QuestionID == "" {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s (question %s)", f.Reason, f.QuestionID)
}

// ValidationError carries the aggregated failures of a rejected publish.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Reasons flattens the failure list to its codes.
func (e *ValidationError) Reasons() []FailureReason {
	out := make([]FailureReason, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Reason
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateQuestion returns the first rule q breaks, or nil.
func ValidateQuestion(q Question) *Failure {
	fail := func(r FailureReason) *Failure {
		return &Failure{Reason: r, QuestionID: q.ID}
	}
	if blank(q.Text) {
		return fail(QuestionMissingText)
	}
	if blank(q.CorrectAnswer) {
		return fail(QuestionMissingAnswer)
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) == 0 {
			return fail(OptionIncomplete)
		}
		for _, opt := range q.Options {
			if blank(opt) {
				return fail(OptionIncomplete)
			}
		}
		if !contains(q.Options, q.CorrectAnswer) {
			return fail(AnswerNotInOptions)
		}
	case TrueFalse:
		if len(q.Options) != len(TrueFalseOptions) ||
			q.Options[0] != TrueFalseOptions[0] || q.Options[1] != TrueFalseOptions[1] {
			return fail(OptionIncomplete)
		}
		if !contains(TrueFalseOptions, q.CorrectAnswer) {
			return fail(AnswerNotInOptions)
		}
	}
	if q.Points < 1 {
		return fail(InvalidPoints)
	}
	return nil
}

// ValidateQuiz returns every failure that blocks publishing q. An empty result means q is publishable.
func ValidateQuiz(q Quiz) []Failure {
	var failures []Failure
	if blank(q.Title) {
		failures = append(failures, Failure{Reason: EmptyTitle})
	}
	if len(q.Questions) == 0 {
		failures = append(failures, Failure{Reason: NoQuestions})
	}
	for _, question := range q.Questions {
		if f := ValidateQuestion(question); f != nil {
			failures = append(failures, *f)
		}
	}
	return failures
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
