package app

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"quizforge-service/internal/domain"
)

// AttemptState is the lifecycle state of a quiz attempt.
type AttemptState int

const (
	AttemptNotStarted AttemptState = iota
	AttemptInProgress
	AttemptCompleted
	AttemptAbandoned
)

func (s AttemptState) String() string {
	switch s {
	case AttemptNotStarted:
		return "not_started"
	case AttemptInProgress:
		return "in_progress"
	case AttemptCompleted:
		return "completed"
	case AttemptAbandoned:
		return "abandoned"
	}
	return "unknown"
}

func (s AttemptState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// QuestionView is a question as shown to a respondent, without its answer.
type QuestionView struct {
	ID      string              `json:"id"`
	Text    string              `json:"text"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options,omitempty"`
	Points  int                 `json:"points"`
}

// QuestionResult is the per-question review shown after completion.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// Result summarizes a completed attempt.
type Result struct {
	Score          int              `json:"score"`
	Correct        int              `json:"correct"`
	Total          int              `json:"total"`
	PointsEarned   int              `json:"pointsEarned"`
	PointsPossible int              `json:"pointsPossible"`
	Expired        bool             `json:"expired"`
	Review         []QuestionResult `json:"review,omitempty"`
}

// Snapshot is a point-in-time view of an attempt.
type Snapshot struct {
	AttemptID        string        `json:"attemptId"`
	QuizID           string        `json:"quizId"`
	State            AttemptState  `json:"state"`
	CurrentIndex     int           `json:"currentIndex"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	SelectedAnswer   string        `json:"selectedAnswer,omitempty"`
	Answered         int           `json:"answered"`
	HasTimeLimit     bool          `json:"hasTimeLimit"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Result           *Result       `json:"result,omitempty"`
}

// TickerFunc starts a ticker and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// AttemptOption customizes an attempt.
type AttemptOption func(*Attempt)

// WithAttemptClock sets the time source used for start and finish timestamps.
func WithAttemptClock(now func() time.Time) AttemptOption {
	return func(a *Attempt) { a.now = now }
}

// WithTicker replaces the one-second countdown ticker.
func WithTicker(f TickerFunc) AttemptOption {
	return func(a *Attempt) { a.newTicker = f }
}

// WithRand sets the random source used to shuffle questions.
func WithRand(r *rand.Rand) AttemptOption {
	return func(a *Attempt) { a.rnd = r }
}

// WithTimeLimit overrides the quiz's configured time limit, in seconds.
func WithTimeLimit(seconds int) AttemptOption {
	return func(a *Attempt) {
		if seconds < 0 {
			seconds = 0
		}
		a.limit = seconds
	}
}

// Attempt drives one respondent through a quiz. It is safe for concurrent use; the
// countdown runs on its own goroutine while a time limit is set.
type Attempt struct {
	id        string
	quiz      domain.Quiz
	now       func() time.Time
	newTicker TickerFunc
	rnd       *rand.Rand
	limit     int

	mu          sync.Mutex
	state       AttemptState
	current     int
	answers     map[string]string
	remaining   int
	result      *Result
	startedAt   time.Time
	finishedAt  time.Time
	stopTimer   func()
	done        chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// NewAttempt prepares an attempt; it does nothing until Start.
func NewAttempt(quiz domain.Quiz, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		id:          domain.NewID(),
		quiz:        quiz.Clone(),
		now:         time.Now,
		newTicker:   realTicker,
		limit:       quiz.Settings.TimeLimitSeconds,
		answers:     make(map[string]string),
		done:        make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.limit < 0 {
		a.limit = 0
	}
	if a.rnd == nil {
		a.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return a
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string { return a.id }

// QuizID returns the id of the quiz being taken.
func (a *Attempt) QuizID() string { return a.quiz.ID }

// Done is closed once the attempt is completed or abandoned.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// FinishedAt reports when the attempt was completed or abandoned.
func (a *Attempt) FinishedAt() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptCompleted && a.state != AttemptAbandoned {
		return time.Time{}, false
	}
	return a.finishedAt, true
}

// State reports the current lifecycle state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start begins the attempt. The countdown, if any, stops when ctx is canceled, which
// abandons the attempt.
func (a *Attempt) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptNotStarted {
		return domain.ErrAttemptStarted
	}
	if len(a.quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}
	if a.quiz.Settings.ShuffleQuestions {
		a.rnd.Shuffle(len(a.quiz.Questions), func(i, j int) {
			a.quiz.Questions[i], a.quiz.Questions[j] = a.quiz.Questions[j], a.quiz.Questions[i]
		})
	}

	a.state = AttemptInProgress
	a.current = 0
	a.answers = make(map[string]string)
	a.remaining = a.limit
	a.startedAt = a.now()

	if a.limit > 0 {
		ticks, stopTicker := a.newTicker(time.Second)
		timerCtx, cancel := context.WithCancel(ctx)
		a.stopTimer = func() {
			cancel()
			stopTicker()
		}
		go a.countdown(timerCtx, ticks)
	}
	a.broadcastLocked()
	return nil
}

func (a *Attempt) countdown(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			a.Abandon()
			return
		case <-ticks:
			if !a.Tick() {
				return
			}
		}
	}
}

// Tick advances the countdown by one second. When it reaches zero the attempt completes
// with whatever answers were captured. It reports whether the countdown is still running.
func (a *Attempt) Tick() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress || a.limit == 0 {
		return false
	}
	a.remaining--
	if a.remaining <= 0 {
		a.remaining = 0
		a.completeLocked(true)
		return false
	}
	a.broadcastLocked()
	return true
}

// SelectAnswer records or overwrites the answer to the current question. An empty answer
// clears it. Position does not change.
func (a *Attempt) SelectAnswer(questionID, answer string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress {
		return domain.ErrAttemptNotInProgress
	}
	current := a.quiz.Questions[a.current]
	if current.ID != questionID {
		if _, ok := a.quiz.Question(questionID); ok {
			return domain.ErrQuestionNotCurrent
		}
		return domain.ErrQuestionNotFound
	}
	if answer == "" {
		delete(a.answers, questionID)
	} else {
		a.answers[questionID] = answer
	}
	a.broadcastLocked()
	return nil
}

// Next moves to the following question, or completes the attempt on the last one.
// It is a no-op while the current question is unanswered.
func (a *Attempt) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress {
		return domain.ErrAttemptNotInProgress
	}
	if _, ok := a.answers[a.quiz.Questions[a.current].ID]; !ok {
		return nil
	}
	if a.current < len(a.quiz.Questions)-1 {
		a.current++
		a.broadcastLocked()
		return nil
	}
	a.completeLocked(false)
	return nil
}

// Previous moves back one question; a no-op on the first one.
func (a *Attempt) Previous() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptInProgress {
		return domain.ErrAttemptNotInProgress
	}
	if a.current > 0 {
		a.current--
		a.broadcastLocked()
	}
	return nil
}

// Score returns the percentage score of a completed attempt.
func (a *Attempt) Score() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return 0, domain.ErrAttemptNotCompleted
	}
	return a.result.Score, nil
}

// Result returns the full result of a completed attempt.
func (a *Attempt) Result() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return Result{}, domain.ErrAttemptNotCompleted
	}
	return copyResult(*a.result), nil
}

// Abandon discards an unfinished attempt and stops its countdown.
func (a *Attempt) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AttemptCompleted || a.state == AttemptAbandoned {
		return
	}
	a.state = AttemptAbandoned
	a.finishedAt = a.now()
	a.finishLocked()
}

// Snapshot returns the current view of the attempt.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one. The channel is
// closed when the attempt finishes; cancel releases it earlier.
func (a *Attempt) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	a.mu.Lock()
	ch <- a.snapshotLocked()
	finished := a.state == AttemptCompleted || a.state == AttemptAbandoned
	if !finished {
		a.subscribers[ch] = struct{}{}
	}
	a.mu.Unlock()

	if finished {
		close(ch)
		return ch, func() {}
	}

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) completeLocked(expired bool) {
	result := scoreAnswers(a.quiz, a.answers)
	result.Expired = expired
	a.result = &result
	a.state = AttemptCompleted
	a.finishedAt = a.now()
	a.finishLocked()
}

// finishLocked stops the countdown, closes Done and flushes a final snapshot to subscribers.
func (a *Attempt) finishLocked() {
	if a.stopTimer != nil {
		a.stopTimer()
		a.stopTimer = nil
	}
	close(a.done)
	a.broadcastLocked()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) broadcastLocked() {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot so the latest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID:        a.id,
		QuizID:           a.quiz.ID,
		State:            a.state,
		CurrentIndex:     a.current,
		Total:            len(a.quiz.Questions),
		Answered:         len(a.answers),
		HasTimeLimit:     a.limit > 0,
		RemainingSeconds: a.remaining,
	}
	if a.state == AttemptInProgress {
		q := a.quiz.Questions[a.current]
		snap.Question = &QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		}
		snap.SelectedAnswer = a.answers[q.ID]
	}
	if a.result != nil {
		r := copyResult(*a.result)
		if !a.quiz.Settings.ShowResults {
			r.Review = nil
		}
		snap.Result = &r
	}
	return snap
}

// scoreAnswers compares answers to the quiz by exact string equality. Unanswered questions
// count as wrong.
func scoreAnswers(quiz domain.Quiz, answers map[string]string) Result {
	result := Result{Total: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		answer, answered := answers[q.ID]
		correct := answered && answer == q.CorrectAnswer
		points := q.Points
		if points < 1 {
			points = 1
		}
		result.PointsPossible += points
		if correct {
			result.Correct++
			result.PointsEarned += points
		}
		result.Review = append(result.Review, QuestionResult{
			QuestionID:    q.ID,
			Answer:        answer,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
		})
	}
	if result.Total > 0 {
		result.Score = int(math.Round(100 * float64(result.Correct) / float64(result.Total)))
	}
	return result
}

func copyResult(r Result) Result {
	r.Review = append([]QuestionResult(nil), r.Review...)
	return r
}

func (r Result) String() string {
	return fmt.Sprintf("%d%% (%d/%d)", r.Score, r.Correct, r.Total)
}
