package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/domain"
	"quizforge-service/internal/infra/memory"
	"quizforge-service/internal/templates"
)

const testSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	alice  string
	bob    string
}

type snapshotBody struct {
	AttemptID    string `json:"attemptId"`
	State        string `json:"state"`
	CurrentIndex int    `json:"currentIndex"`
	Question     *struct {
		ID string `json:"id"`
	} `json:"question"`
	SelectedAnswer string      `json:"selectedAnswer"`
	Result         *app.Result `json:"result"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog, err := templates.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	store := memory.NewQuizStore()
	service := app.NewQuizService(store, memory.NewAttemptStore(time.Hour), app.WithPublicURL("https://quiz.example.com"))
	authoring := app.NewAuthoring(store, catalog)
	srv := NewServer(service, authoring, catalog)

	server := httptest.NewServer(srv.Routes(auth.NewVerifier(testSecret, ""), nil))
	t.Cleanup(server.Close)

	issuer := auth.NewIssuer(testSecret, "", time.Hour)
	alice, _ := issuer.Issue(domain.Identity{UID: "u1", DisplayName: "Alice"})
	bob, _ := issuer.Issue(domain.Identity{UID: "u2", DisplayName: "Bob"})
	return &testEnv{server: server, alice: alice, bob: bob}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func publishableQuiz() map[string]any {
	return map[string]any{
		"title":  "Capitals",
		"tags":   []string{"Geography"},
		"status": "published",
		"questions": []map[string]any{
			{"text": "Capital of France?", "type": "multiple-choice", "options": []string{"Paris", "Rome"}, "correctAnswer": "Paris", "points": 1},
		},
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCreateAndReadQuiz(t *testing.T) {
	env := newTestEnv(t)

	if status := env.do(t, http.MethodPost, "/quizzes", "", publishableQuiz(), nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	var created domain.Quiz
	if status := env.do(t, http.MethodPost, "/quizzes", env.alice, publishableQuiz(), &created); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if created.ID == "" || created.Status != domain.StatusPublished || created.OwnerID != "u1" {
		t.Fatalf("unexpected quiz %+v", created)
	}

	var own domain.Quiz
	env.do(t, http.MethodGet, "/quizzes/"+created.ID, env.alice, nil, &own)
	if own.Questions[0].CorrectAnswer != "Paris" {
		t.Fatalf("owner should see answers, got %+v", own.Questions[0])
	}
	var public domain.Quiz
	if status := env.do(t, http.MethodGet, "/quizzes/"+created.ID, "", nil, &public); status != http.StatusOK {
		t.Fatalf("expected published quiz visible, got %d", status)
	}
	if public.Questions[0].CorrectAnswer != "" {
		t.Fatalf("answers leaked to respondent: %+v", public.Questions[0])
	}

	var list quizListResponse
	env.do(t, http.MethodGet, "/quizzes?tab=published&tag=Geography", env.alice, nil, &list)
	if len(list.Quizzes) != 1 || list.Summary.Total != 1 || list.Summary.Published != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	var share map[string]string
	env.do(t, http.MethodGet, "/quizzes/"+created.ID+"/share", env.bob, nil, &share)
	if share["url"] != "https://quiz.example.com/quiz/"+created.ID {
		t.Fatalf("unexpected share link %v", share)
	}
}

func TestPublishValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	body := publishableQuiz()
	body["title"] = "   "

	var errBody errorBody
	if status := env.do(t, http.MethodPost, "/quizzes", env.alice, body, &errBody); status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if len(errBody.Failures) != 1 || errBody.Failures[0].Reason != domain.EmptyTitle {
		t.Fatalf("unexpected failures %+v", errBody.Failures)
	}

	var list quizListResponse
	env.do(t, http.MethodGet, "/quizzes", env.alice, nil, &list)
	if len(list.Quizzes) != 0 {
		t.Fatalf("rejected publish must not persist, got %d quizzes", len(list.Quizzes))
	}
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	body := publishableQuiz()
	body["status"] = "archived"
	if status := env.do(t, http.MethodPost, "/quizzes", env.alice, body, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", status)
	}

	var created domain.Quiz
	env.do(t, http.MethodPost, "/quizzes", env.alice, publishableQuiz(), &created)
	if status := env.do(t, http.MethodPut, "/quizzes/"+created.ID+"/featured", env.alice, map[string]any{}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing featured flag, got %d", status)
	}
}

func TestOwnerOnlyOperations(t *testing.T) {
	env := newTestEnv(t)
	var created domain.Quiz
	env.do(t, http.MethodPost, "/quizzes", env.alice, publishableQuiz(), &created)
	path := "/quizzes/" + created.ID

	if status := env.do(t, http.MethodPut, path, env.bob, map[string]any{"title": "Mine now"}, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 on foreign update, got %d", status)
	}
	if status := env.do(t, http.MethodDelete, path, env.bob, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 on foreign delete, got %d", status)
	}

	var updated domain.Quiz
	if status := env.do(t, http.MethodPut, path, env.alice, map[string]any{"title": "Capitals of Europe"}, &updated); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if updated.Title != "Capitals of Europe" || updated.Status != domain.StatusPublished || len(updated.Questions) != 1 {
		t.Fatalf("unexpected update %+v", updated)
	}

	var featured domain.Quiz
	env.do(t, http.MethodPut, path+"/featured", env.alice, map[string]any{"featured": true}, &featured)
	if !featured.Featured {
		t.Fatalf("expected featured quiz")
	}

	var copied domain.Quiz
	if status := env.do(t, http.MethodPost, path+"/duplicate", env.bob, nil, &copied); status != http.StatusCreated {
		t.Fatalf("expected 201 on duplicate, got %d", status)
	}
	if copied.OwnerID != "u2" || copied.Title != "Capitals of Europe (Copy)" {
		t.Fatalf("unexpected copy %+v", copied)
	}

	if status := env.do(t, http.MethodDelete, path, env.alice, nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	if status := env.do(t, http.MethodGet, path, env.alice, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)

	var list []domain.Template
	env.do(t, http.MethodGet, "/templates?category=education", "", nil, &list)
	if len(list) == 0 {
		t.Fatalf("expected education templates")
	}
	for _, tmpl := range list {
		if tmpl.Category != "education" {
			t.Fatalf("unexpected category %q", tmpl.Category)
		}
	}

	if status := env.do(t, http.MethodGet, "/templates/999", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	var categories []domain.Category
	env.do(t, http.MethodGet, "/categories", "", nil, &categories)
	if len(categories) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(categories))
	}

	var quiz domain.Quiz
	if status := env.do(t, http.MethodPost, "/quizzes?template=1", env.alice, nil, &quiz); status != http.StatusCreated {
		t.Fatalf("expected 201 from template, got %d", status)
	}
	if quiz.Title != "JavaScript Fundamentals" || quiz.Status != domain.StatusDraft || len(quiz.Questions) == 0 {
		t.Fatalf("unexpected quiz from template %+v", quiz)
	}
	if status := env.do(t, http.MethodPost, "/quizzes?template=999", env.alice, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", status)
	}
}

func TestAttemptOverREST(t *testing.T) {
	env := newTestEnv(t)
	var created domain.Quiz
	env.do(t, http.MethodPost, "/quizzes", env.alice, publishableQuiz(), &created)

	var snap snapshotBody
	if status := env.do(t, http.MethodPost, "/quizzes/"+created.ID+"/attempts", "", nil, &snap); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if snap.State != "in_progress" || snap.Question == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	questionID := snap.Question.ID
	path := "/attempts/" + snap.AttemptID

	if status := env.do(t, http.MethodPost, path+"/answer", "", map[string]string{"questionId": "other", "answer": "Paris"}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown question, got %d", status)
	}
	env.do(t, http.MethodPost, path+"/answer", "", map[string]string{"questionId": questionID, "answer": "Paris"}, &snap)
	if snap.SelectedAnswer != "Paris" {
		t.Fatalf("expected answer recorded, got %+v", snap)
	}

	env.do(t, http.MethodPost, path+"/next", "", nil, &snap)
	if snap.State != "completed" || snap.Result == nil || snap.Result.Score != 100 {
		t.Fatalf("expected completed attempt with score 100, got %+v", snap)
	}
	if status := env.do(t, http.MethodPost, path+"/next", "", nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 after completion, got %d", status)
	}

	if status := env.do(t, http.MethodDelete, path, "", nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	if status := env.do(t, http.MethodGet, path, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after abandon, got %d", status)
	}
}

func TestAttemptRequiresPublishedQuiz(t *testing.T) {
	env := newTestEnv(t)
	body := publishableQuiz()
	body["status"] = "draft"
	var created domain.Quiz
	env.do(t, http.MethodPost, "/quizzes", env.alice, body, &created)

	if status := env.do(t, http.MethodPost, "/quizzes/"+created.ID+"/attempts", env.alice, nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 for draft quiz, got %d", status)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{Failures: []domain.Failure{{Reason: domain.NoQuestions}}}, http.StatusUnprocessableEntity},
		{domain.ErrQuizNotFound, http.StatusNotFound},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{domain.ErrSaveInProgress, http.StatusConflict},
		{domain.ErrInvalidPoints, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
