package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/domain"
	"quizforge-service/internal/templates"
)

// quizPayload is the authoring request body. Nil fields are left as they are.
type quizPayload struct {
	Title       *string           `json:"title" validate:"omitempty,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Tags        []string          `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Questions   []questionPayload `json:"questions" validate:"omitempty,max=200,dive"`
	Settings    *domain.Settings  `json:"settings"`
	Theme       *domain.Theme     `json:"theme"`
	Status      domain.Status     `json:"status" validate:"omitempty,oneof=draft published"`
}

type questionPayload struct {
	ID            string              `json:"id" validate:"omitempty,max=64"`
	Text          string              `json:"text" validate:"max=1000"`
	Type          domain.QuestionType `json:"type" validate:"omitempty,oneof=multiple-choice true-false short-answer"`
	Options       []string            `json:"options" validate:"omitempty,max=10"`
	CorrectAnswer string              `json:"correctAnswer" validate:"max=500"`
	Points        int                 `json:"points" validate:"gte=0,lte=100"`
}

type featuredPayload struct {
	Featured *bool `json:"featured" validate:"required"`
}

type quizListResponse struct {
	Quizzes []domain.Quiz `json:"quizzes"`
	Summary app.Summary   `json:"summary"`
}

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request) {
	who := auth.FromContext(r.Context())
	q := r.URL.Query()
	filter := app.ListFilter{Query: q.Get("q"), Tab: q.Get("tab"), Tags: q["tag"]}

	quizzes, err := s.service.List(r.Context(), who, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Counters always cover the whole dashboard, not the filtered view.
	all, err := s.service.List(r.Context(), who, app.ListFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizListResponse{Quizzes: quizzes, Summary: app.Summarize(all)})
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	who := auth.FromContext(r.Context())
	var payload quizPayload
	if !s.decode(w, r, &payload) {
		return
	}

	var (
		draft *app.Draft
		err   error
	)
	if raw := r.URL.Query().Get("template"); raw != "" {
		id, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, r, domain.ErrInvalidTemplateReference)
			return
		}
		draft, err = s.authoring.FromTemplate(who, id)
	} else {
		draft, err = s.authoring.NewDraft(who)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := applyPayload(draft, who, payload); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := s.authoring.Save(r.Context(), who, draft, targetStatus(payload.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request) {
	who := auth.FromContext(r.Context())
	quiz, err := s.service.Get(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if quiz.OwnerID != who.UID {
		quiz = hideAnswers(quiz)
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) updateQuiz(w http.ResponseWriter, r *http.Request) {
	who := auth.FromContext(r.Context())
	var payload quizPayload
	if !s.decode(w, r, &payload) {
		return
	}

	draft, err := s.authoring.Open(r.Context(), who, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := applyPayload(draft, who, payload); err != nil {
		writeError(w, r, err)
		return
	}
	status := payload.Status
	if status == "" {
		status = draft.Quiz().Status
	}
	quiz, err := s.authoring.Save(r.Context(), who, draft, targetStatus(status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setFeatured(w http.ResponseWriter, r *http.Request) {
	var payload featuredPayload
	if !s.decode(w, r, &payload) {
		return
	}
	quiz, err := s.service.SetFeatured(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), *payload.Featured)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) duplicateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.service.Duplicate(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) shareQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.service.Get(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.service.ShareLink(quiz.ID)})
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.catalog.List(templates.Filter{Query: q.Get("q"), Category: q.Get("category")}))
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.ErrInvalidTemplateReference)
		return
	}
	t, err := s.catalog.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Categories())
}

// applyPayload replays the request body onto the draft as individual edits.
func applyPayload(d *app.Draft, who domain.Identity, p quizPayload) error {
	if p.Title != nil {
		if err := d.SetTitle(who, *p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := d.SetDescription(who, *p.Description); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		for _, tag := range d.Quiz().Tags {
			if err := d.RemoveTag(who, tag); err != nil {
				return err
			}
		}
		for _, tag := range p.Tags {
			if err := d.AddTag(who, tag); err != nil {
				return err
			}
		}
	}
	if p.Questions != nil {
		questions := make([]domain.Question, len(p.Questions))
		for i, q := range p.Questions {
			questions[i] = domain.Question{
				ID:            q.ID,
				Text:          q.Text,
				Type:          q.Type,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				Points:        q.Points,
			}
		}
		if err := d.ReplaceQuestions(who, questions); err != nil {
			return err
		}
	}
	if p.Settings != nil {
		if err := d.SetSettings(who, *p.Settings); err != nil {
			return err
		}
	}
	if p.Theme != nil {
		if err := d.SetTheme(who, *p.Theme); err != nil {
			return err
		}
	}
	return nil
}

func targetStatus(s domain.Status) domain.Status {
	if s == domain.StatusPublished {
		return domain.StatusPublished
	}
	return domain.StatusDraft
}

// hideAnswers strips expected answers from a quiz shown to someone other than its owner.
func hideAnswers(q domain.Quiz) domain.Quiz {
	q = q.Clone()
	for i := range q.Questions {
		q.Questions[i].CorrectAnswer = ""
	}
	return q
}
