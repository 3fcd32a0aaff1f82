package http

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/templates"
)

// Server exposes the quiz use cases over REST and WebSocket.
type Server struct {
	service   *app.QuizService
	authoring *app.Authoring
	catalog   *templates.Catalog
	validate  *validator.Validate
	upgrader  websocket.Upgrader
}

func NewServer(service *app.QuizService, authoring *app.Authoring, catalog *templates.Catalog) *Server {
	return &Server{
		service:   service,
		authoring: authoring,
		catalog:   catalog,
		validate:  validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the HTTP handler. Requests carrying a valid bearer token are served as
// that user; everything else is anonymous.
func (s *Server) Routes(verifier *auth.Verifier, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware(verifier))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/categories", s.listCategories)
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Get("/{id}", s.getTemplate)
	})

	r.Route("/quizzes", func(r chi.Router) {
		r.Get("/", s.listQuizzes)
		r.Post("/", s.createQuiz)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getQuiz)
			r.Put("/", s.updateQuiz)
			r.Delete("/", s.deleteQuiz)
			r.Put("/featured", s.setFeatured)
			r.Post("/duplicate", s.duplicateQuiz)
			r.Get("/share", s.shareQuiz)
			r.Post("/attempts", s.startAttempt)
		})
	})

	r.Route("/attempts/{id}", func(r chi.Router) {
		r.Get("/", s.getAttempt)
		r.Delete("/", s.abandonAttempt)
		r.Post("/answer", s.answerAttempt)
		r.Post("/next", s.nextQuestion)
		r.Post("/previous", s.previousQuestion)
		r.Get("/ws", s.ServeAttemptWS)
	})
	return r
}
