package app

import (
	"context"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"quizforge-service/internal/domain"
)

// Dashboard tabs accepted by ListFilter.Tab.
const (
	TabAll       = "all"
	TabPublished = "published"
	TabDrafts    = "drafts"
	TabFeatured  = "featured"
	TabTemplates = "templates"
)

// ListFilter narrows an owner's quiz list. Zero values match everything.
type ListFilter struct {
	Query string
	Tab   string
	Tags  []string
}

// Summary holds the dashboard counters for a quiz list.
type Summary struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
	Featured  int `json:"featured"`
	Templates int `json:"templates"`
}

// QuizService contains the owner-scoped quiz use cases and attempt bookkeeping.
type QuizService struct {
	store       QuizStore
	attempts    AttemptRegistry
	now         func() time.Time
	publicURL   string
	attemptOpts []AttemptOption
}

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

// WithClock sets the time source used for LastModified stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

// WithPublicURL sets the base URL used for share links.
func WithPublicURL(url string) ServiceOption {
	return func(s *QuizService) { s.publicURL = strings.TrimRight(url, "/") }
}

// WithAttemptOptions applies opts to every attempt the service starts.
func WithAttemptOptions(opts ...AttemptOption) ServiceOption {
	return func(s *QuizService) { s.attemptOpts = append(s.attemptOpts, opts...) }
}

func NewQuizService(store QuizStore, attempts AttemptRegistry, opts ...ServiceOption) *QuizService {
	s := &QuizService{store: store, attempts: attempts, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the caller's quizzes matching f, most recently modified first.
func (s *QuizService) List(ctx context.Context, who domain.Identity, f ListFilter) ([]domain.Quiz, error) {
	if who.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	quizzes, err := s.store.ListByOwner(ctx, who.UID)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if query != "" &&
			!strings.Contains(strings.ToLower(quiz.Title), query) &&
			!strings.Contains(strings.ToLower(quiz.Description), query) {
			continue
		}
		if !matchesTab(quiz, f.Tab) || !hasAllTags(quiz, f.Tags) {
			continue
		}
		out = append(out, quiz)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

func matchesTab(quiz domain.Quiz, tab string) bool {
	switch tab {
	case "", TabAll:
		return true
	case TabPublished:
		return quiz.Status == domain.StatusPublished
	case TabDrafts:
		return quiz.Status == domain.StatusDraft
	case TabFeatured:
		return quiz.Featured
	case TabTemplates:
		return quiz.IsTemplate
	}
	return false
}

func hasAllTags(quiz domain.Quiz, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, tag := range quiz.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Summarize counts quizzes per dashboard tab.
func Summarize(quizzes []domain.Quiz) Summary {
	var sum Summary
	for _, quiz := range quizzes {
		sum.Total++
		if quiz.Status == domain.StatusPublished {
			sum.Published++
		} else {
			sum.Drafts++
		}
		if quiz.Featured {
			sum.Featured++
		}
		if quiz.IsTemplate {
			sum.Templates++
		}
	}
	return sum
}

// Get returns a quiz. Owners see their drafts; everyone else only sees published quizzes.
func (s *QuizService) Get(ctx context.Context, who domain.Identity, id string) (domain.Quiz, error) {
	quiz, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status != domain.StatusPublished && (who.Anonymous() || who.UID != quiz.OwnerID) {
		// Drafts are invisible to non-owners.
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) owned(ctx context.Context, who domain.Identity, id string) (domain.Quiz, error) {
	if who.Anonymous() {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	quiz, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != who.UID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

// Delete removes one of the caller's quizzes.
func (s *QuizService) Delete(ctx context.Context, who domain.Identity, id string) error {
	if _, err := s.owned(ctx, who, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"quiz": id, "owner": who.UID}).Info("quiz deleted")
	return nil
}

// SetFeatured toggles the featured flag of one of the caller's quizzes.
func (s *QuizService) SetFeatured(ctx context.Context, who domain.Identity, id string, featured bool) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, who, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	patch := domain.QuizPatch{Featured: &featured, LastModified: s.now()}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return domain.Quiz{}, err
	}
	patch.Apply(&quiz)
	return quiz, nil
}

// Duplicate copies a quiz the caller can see into a new quiz owned by the caller.
func (s *QuizService) Duplicate(ctx context.Context, who domain.Identity, id string) (domain.Quiz, error) {
	if who.Anonymous() {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	source, err := s.Get(ctx, who, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	copied := source.Clone()
	copied.ID = ""
	copied.OwnerID = who.UID
	copied.Title = source.Title + " (Copy)"
	copied.IsTemplate = false
	copied.CreatedAt = now
	copied.LastModified = now

	newID, err := s.store.Create(ctx, copied, who.UID)
	if err != nil {
		return domain.Quiz{}, err
	}
	copied.ID = newID
	log.WithFields(log.Fields{"quiz": newID, "source": id, "owner": who.UID}).Info("quiz duplicated")
	return copied, nil
}

// ShareLink returns the public URL respondents use to take a quiz.
func (s *QuizService) ShareLink(id string) string {
	return s.publicURL + "/quiz/" + id
}

// StartAttempt begins a new attempt on a published quiz. The attempt outlives ctx; it ends
// on completion, expiry or AbandonAttempt.
func (s *QuizService) StartAttempt(ctx context.Context, quizID string) (*Attempt, error) {
	quiz, err := s.store.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != domain.StatusPublished {
		return nil, domain.ErrQuizNotPublished
	}

	attempt := NewAttempt(quiz, s.attemptOpts...)
	if err := attempt.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	s.attempts.Add(attempt)
	log.WithFields(log.Fields{"attempt": attempt.ID(), "quiz": quizID}).Debug("attempt started")
	return attempt, nil
}

// Attempt looks up a live attempt.
func (s *QuizService) Attempt(_ context.Context, id string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(id)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// AbandonAttempt stops and forgets an attempt.
func (s *QuizService) AbandonAttempt(_ context.Context, id string) error {
	attempt, ok := s.attempts.Get(id)
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Abandon()
	s.attempts.Remove(id)
	return nil
}
