package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"quizforge-service/internal/domain"
)

// DraftState tracks where a draft is in its authoring lifecycle.
type DraftState int

const (
	DraftEmpty DraftState = iota
	DraftEditing
	DraftSaved
	DraftPublished
)

func (s DraftState) String() string {
	switch s {
	case DraftEmpty:
		return "empty"
	case DraftEditing:
		return "editing"
	case DraftSaved:
		return "draft"
	case DraftPublished:
		return "published"
	}
	return "unknown"
}

// QuestionEdit replaces exactly one field of a question.
type QuestionEdit interface {
	apply(q *domain.Question) error
}

// SetText replaces the question text.
type SetText string

// SetType switches the question type. Options and answer are left as they are; publish
// validation rejects combinations that do not fit the new type.
type SetType domain.QuestionType

// SetOptions replaces the option list.
type SetOptions []string

// SetCorrectAnswer replaces the expected answer value.
type SetCorrectAnswer string

// SetPoints replaces the points awarded; must be at least 1.
type SetPoints int

func (e SetText) apply(q *domain.Question) error {
	q.Text = string(e)
	return nil
}

func (e SetType) apply(q *domain.Question) error {
	t := domain.QuestionType(e)
	if !t.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidQuestionType, string(e))
	}
	q.Type = t
	return nil
}

func (e SetOptions) apply(q *domain.Question) error {
	q.Options = append([]string(nil), e...)
	return nil
}

func (e SetCorrectAnswer) apply(q *domain.Question) error {
	q.CorrectAnswer = string(e)
	return nil
}

func (e SetPoints) apply(q *domain.Question) error {
	if e < 1 {
		return domain.ErrInvalidPoints
	}
	q.Points = int(e)
	return nil
}

// Draft is an in-memory quiz being authored by its owner. Mutations are rejected while a
// save is in flight.
type Draft struct {
	mu      sync.Mutex
	ownerID string
	quiz    domain.Quiz
	state   DraftState
	saving  bool
}

func newDraft(ownerID string, quiz domain.Quiz, state DraftState) *Draft {
	quiz.OwnerID = ownerID
	if quiz.Tags == nil {
		quiz.Tags = []string{}
	}
	if quiz.Questions == nil {
		quiz.Questions = []domain.Question{}
	}
	return &Draft{ownerID: ownerID, quiz: quiz, state: state}
}

// Quiz returns a copy of the draft's current content.
func (d *Draft) Quiz() domain.Quiz {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quiz.Clone()
}

// State reports the draft's lifecycle state.
func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Saving reports whether a save is in flight.
func (d *Draft) Saving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saving
}

func authorize(who domain.Identity, ownerID string) error {
	if who.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if ownerID != "" && who.UID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}

// edit runs fn under the lock after the ownership and save checks. fn reports whether it
// changed anything; unchanged drafts keep their state.
func (d *Draft) edit(who domain.Identity, fn func(q *domain.Quiz) (bool, error)) error {
	if err := authorize(who, d.ownerID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saving {
		return domain.ErrSaveInProgress
	}
	changed, err := fn(&d.quiz)
	if err != nil {
		return err
	}
	if changed {
		d.state = DraftEditing
	}
	return nil
}

// AddQuestion appends a blank multiple-choice question and returns it.
func (d *Draft) AddQuestion(who domain.Identity) (domain.Question, error) {
	question := domain.Question{
		ID:            domain.NewID(),
		Type:          domain.MultipleChoice,
		Options:       make([]string, 4),
		CorrectAnswer: "",
		Points:        1,
	}
	err := d.edit(who, func(q *domain.Quiz) (bool, error) {
		q.Questions = append(q.Questions, question)
		return true, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return question.Clone(), nil
}

// UpdateQuestion applies edit to the question with the given id.
func (d *Draft) UpdateQuestion(who domain.Identity, id string, edit QuestionEdit) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		for i := range q.Questions {
			if q.Questions[i].ID != id {
				continue
			}
			updated := q.Questions[i].Clone()
			if err := edit.apply(&updated); err != nil {
				return false, err
			}
			q.Questions[i] = updated
			return true, nil
		}
		return false, domain.ErrQuestionNotFound
	})
}

// RemoveQuestion deletes the question with the given id. Unknown ids are ignored.
func (d *Draft) RemoveQuestion(who domain.Identity, id string) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		kept := make([]domain.Question, 0, len(q.Questions))
		for _, question := range q.Questions {
			if question.ID != id {
				kept = append(kept, question)
			}
		}
		if len(kept) == len(q.Questions) {
			return false, nil
		}
		q.Questions = kept
		return true, nil
	})
}

// ReplaceQuestions swaps the whole question list. Questions without an id, or with an id
// already used earlier in the list, get a fresh one; zero points default to 1.
func (d *Draft) ReplaceQuestions(who domain.Identity, questions []domain.Question) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		seen := make(map[string]struct{}, len(questions))
		out := make([]domain.Question, 0, len(questions))
		for _, question := range questions {
			question = question.Clone()
			if _, dup := seen[question.ID]; question.ID == "" || dup {
				question.ID = domain.NewID()
			}
			seen[question.ID] = struct{}{}
			if question.Points == 0 {
				question.Points = 1
			}
			if question.Type == "" {
				question.Type = domain.MultipleChoice
			}
			if !question.Type.Valid() {
				return false, fmt.Errorf("%w: %q", domain.ErrInvalidQuestionType, question.Type)
			}
			out = append(out, question)
		}
		q.Questions = out
		return true, nil
	})
}

// AddTag appends a trimmed tag. Empty tags and duplicates are ignored.
func (d *Draft) AddTag(who domain.Identity, tag string) error {
	tag = strings.TrimSpace(tag)
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		if tag == "" {
			return false, nil
		}
		for _, existing := range q.Tags {
			if existing == tag {
				return false, nil
			}
		}
		q.Tags = append(q.Tags, tag)
		return true, nil
	})
}

// RemoveTag drops a tag if present.
func (d *Draft) RemoveTag(who domain.Identity, tag string) error {
	tag = strings.TrimSpace(tag)
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		kept := make([]string, 0, len(q.Tags))
		for _, existing := range q.Tags {
			if existing != tag {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(q.Tags) {
			return false, nil
		}
		q.Tags = kept
		return true, nil
	})
}

// SetTitle replaces the quiz title.
func (d *Draft) SetTitle(who domain.Identity, title string) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		q.Title = title
		return true, nil
	})
}

// SetDescription replaces the quiz description.
func (d *Draft) SetDescription(who domain.Identity, description string) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		q.Description = description
		return true, nil
	})
}

// SetSettings replaces the taking settings. A negative time limit is treated as none.
func (d *Draft) SetSettings(who domain.Identity, settings domain.Settings) error {
	if settings.TimeLimitSeconds < 0 {
		settings.TimeLimitSeconds = 0
	}
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		q.Settings = settings
		return true, nil
	})
}

// SetTheme replaces the presentation theme.
func (d *Draft) SetTheme(who domain.Identity, theme domain.Theme) error {
	return d.edit(who, func(q *domain.Quiz) (bool, error) {
		q.Theme = theme
		return true, nil
	})
}

// Authoring creates, loads and persists drafts.
type Authoring struct {
	store     QuizStore
	templates TemplateSource
	now       func() time.Time
}

func NewAuthoring(store QuizStore, templates TemplateSource) *Authoring {
	return NewAuthoringWithClock(store, templates, time.Now)
}

// NewAuthoringWithClock allows deterministic timestamps in tests.
func NewAuthoringWithClock(store QuizStore, templates TemplateSource, now func() time.Time) *Authoring {
	return &Authoring{store: store, templates: templates, now: now}
}

// NewDraft starts an empty draft owned by who.
func (a *Authoring) NewDraft(who domain.Identity) (*Draft, error) {
	if who.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	quiz := domain.Quiz{
		Status:   domain.StatusDraft,
		Settings: domain.DefaultSettings(),
		Theme:    domain.DefaultTheme(),
	}
	return newDraft(who.UID, quiz, DraftEmpty), nil
}

// FromTemplate starts a draft pre-populated from a catalog template.
func (a *Authoring) FromTemplate(who domain.Identity, templateID int) (*Draft, error) {
	if who.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	quiz, err := a.templates.Instantiate(templateID)
	if err != nil {
		return nil, err
	}
	return newDraft(who.UID, quiz, DraftEditing), nil
}

// Open loads a persisted quiz for editing by its owner.
func (a *Authoring) Open(ctx context.Context, who domain.Identity, id string) (*Draft, error) {
	if who.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	quiz, err := a.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.OwnerID != who.UID {
		return nil, domain.ErrForbidden
	}
	state := DraftSaved
	if quiz.Status == domain.StatusPublished {
		state = DraftPublished
	}
	return newDraft(who.UID, quiz, state), nil
}

// Save persists the draft with the target status. Publishing requires the quiz to validate;
// draft saves never do. The draft is only changed once the store accepted the write.
func (a *Authoring) Save(ctx context.Context, who domain.Identity, d *Draft, target domain.Status) (domain.Quiz, error) {
	if target != domain.StatusDraft && target != domain.StatusPublished {
		return domain.Quiz{}, fmt.Errorf("unknown status %q", target)
	}
	if err := authorize(who, d.ownerID); err != nil {
		return domain.Quiz{}, err
	}

	d.mu.Lock()
	if d.saving {
		d.mu.Unlock()
		return domain.Quiz{}, domain.ErrSaveInProgress
	}
	d.saving = true
	pending := normalize(d.quiz.Clone())
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.saving = false
		d.mu.Unlock()
	}()

	pending.Status = target
	pending.OwnerID = d.ownerID
	if target == domain.StatusPublished {
		if failures := domain.ValidateQuiz(pending); len(failures) > 0 {
			return domain.Quiz{}, &domain.ValidationError{Failures: failures}
		}
	}

	now := a.now()
	pending.LastModified = now
	if pending.ID == "" {
		pending.CreatedAt = now
		id, err := a.store.Create(ctx, pending, d.ownerID)
		if err != nil {
			return domain.Quiz{}, err
		}
		pending.ID = id
	} else {
		if err := a.store.Update(ctx, pending.ID, domain.FullPatch(pending, now)); err != nil {
			return domain.Quiz{}, err
		}
		if stored, err := a.store.GetByID(ctx, pending.ID); err == nil {
			pending.Featured, pending.IsTemplate = stored.Featured, stored.IsTemplate
		}
	}

	d.mu.Lock()
	d.quiz = pending.Clone()
	if target == domain.StatusPublished {
		d.state = DraftPublished
	} else {
		d.state = DraftSaved
	}
	d.mu.Unlock()

	log.WithFields(log.Fields{"quiz": pending.ID, "owner": d.ownerID, "status": target}).Info("quiz saved")
	return pending, nil
}

// normalize trims the free-text fields the way they are stored.
func normalize(q domain.Quiz) domain.Quiz {
	q.Title = strings.TrimSpace(q.Title)
	q.Description = strings.TrimSpace(q.Description)
	for i := range q.Questions {
		question := &q.Questions[i]
		question.Text = strings.TrimSpace(question.Text)
		question.CorrectAnswer = strings.TrimSpace(question.CorrectAnswer)
		for j := range question.Options {
			question.Options[j] = strings.TrimSpace(question.Options[j])
		}
	}
	return q
}
