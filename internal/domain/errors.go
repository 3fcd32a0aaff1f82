package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz document could not be resolved.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidTemplateReference is returned when a template id is not in the catalog.
	ErrInvalidTemplateReference = errors.New("template not found")
	// ErrAttemptNotFound is returned for unknown or expired attempts.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrStoreUnavailable wraps transport failures of the document store. Safe to retry.
	ErrStoreUnavailable = errors.New("quiz store unavailable")

	// ErrUnauthenticated is returned by owner-scoped operations without a signed-in user.
	ErrUnauthenticated = errors.New("no authenticated user")
	// ErrForbidden is returned when the caller does not own the quiz.
	ErrForbidden = errors.New("quiz belongs to another user")
	// ErrEmptyQuiz is returned when starting an attempt on a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrQuizNotPublished is returned when starting an attempt on a draft.
	ErrQuizNotPublished = errors.New("quiz is not published")
	// ErrSaveInProgress is returned when a save is triggered while another one is in flight.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrInvalidPoints rejects a points value below 1.
	ErrInvalidPoints = errors.New("points must be at least 1")
	// ErrInvalidQuestionType rejects an unknown question type.
	ErrInvalidQuestionType = errors.New("unknown question type")

	// ErrAttemptNotInProgress is returned by answer and navigation calls outside an active attempt.
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	// ErrAttemptNotCompleted is returned when asking for a score before completion.
	ErrAttemptNotCompleted = errors.New("attempt is not completed")
	// ErrAttemptStarted is returned when Start is called twice.
	ErrAttemptStarted = errors.New("attempt already started")
	// ErrQuestionNotCurrent rejects answers for a question other than the one on screen.
	ErrQuestionNotCurrent = errors.New("question is not the current question")

	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("quiz failed validation")
)

// IsPrecondition reports whether err is a precondition failure that should not be retried
// until the caller resolves it.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrEmptyQuiz) ||
		errors.Is(err, ErrQuizNotPublished) ||
		errors.Is(err, ErrSaveInProgress)
}
