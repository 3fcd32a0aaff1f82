package http

import (
	"net/http"

	"github.com/go-chi/chi"

	"quizforge-service/internal/app"
)

type answerPayload struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"max=500"`
}

func (s *Server) startAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.service.StartAttempt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt.Snapshot())
}

func (s *Server) getAttempt(w http.ResponseWriter, r *http.Request) {
	s.withAttempt(w, r, func(a *app.Attempt) error { return nil })
}

func (s *Server) abandonAttempt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.AbandonAttempt(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) answerAttempt(w http.ResponseWriter, r *http.Request) {
	var payload answerPayload
	if !s.decode(w, r, &payload) {
		return
	}
	s.withAttempt(w, r, func(a *app.Attempt) error {
		return a.SelectAnswer(payload.QuestionID, payload.Answer)
	})
}

func (s *Server) nextQuestion(w http.ResponseWriter, r *http.Request) {
	s.withAttempt(w, r, (*app.Attempt).Next)
}

func (s *Server) previousQuestion(w http.ResponseWriter, r *http.Request) {
	s.withAttempt(w, r, (*app.Attempt).Previous)
}

// withAttempt resolves the attempt in the URL, runs fn and replies with the new snapshot.
func (s *Server) withAttempt(w http.ResponseWriter, r *http.Request, fn func(*app.Attempt) error) {
	attempt, err := s.service.Attempt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := fn(attempt); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt.Snapshot())
}
