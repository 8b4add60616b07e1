package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/flashcards"
	"github.com/conorfennell/knolstudy/internal/gitsource"
	"github.com/conorfennell/knolstudy/internal/importer"
	"github.com/conorfennell/knolstudy/internal/quiz"
	"github.com/conorfennell/knolstudy/internal/sessions"
	"github.com/conorfennell/knolstudy/internal/validation"
)

// History exposes the recorded quiz results and review logs.
type History interface {
	QuizResults(quizID string) ([]domain.QuizResult, error)
	ReviewLogs(cardID string) ([]domain.ReviewLog, error)
}

// Deps are the services the HTTP API is built on.
type Deps struct {
	Banks       *quiz.Banks
	Engine      *quiz.Engine
	Generator   *quiz.Generator
	Sessions    sessions.Store
	Sets        *flashcards.Sets
	Importer    *importer.Importer
	History     History
	ReviewLimit int
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	Deps
	log    *slog.Logger
	router *mux.Router

	// answerMu serialises load-answer-save cycles on live sessions.
	answerMu sync.Mutex
}

// NewServer creates and configures a new server.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		Deps:   deps,
		log:    logger,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	// Question banks and quiz sessions
	s.router.HandleFunc("/quizzes", s.handleListQuizzes()).Methods(http.MethodGet)
	s.router.HandleFunc("/quizzes", s.handleCreateQuiz()).Methods(http.MethodPost)
	s.router.HandleFunc("/quizzes/generate", s.handleGenerateQuiz()).Methods(http.MethodPost)
	s.router.HandleFunc("/quizzes/{id}", s.handleGetQuiz()).Methods(http.MethodGet)
	s.router.HandleFunc("/quizzes/{id}/questions", s.handleAddQuestion()).Methods(http.MethodPost)
	s.router.HandleFunc("/quizzes/{id}/sessions", s.handleCreateSession()).Methods(http.MethodPost)
	s.router.HandleFunc("/quizzes/{id}/results", s.handleQuizResults()).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/{id}", s.handleGetSession()).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/{id}/answers", s.handleAnswer()).Methods(http.MethodPost)

	// Flashcards
	s.router.HandleFunc("/flashcards", s.handleListSets()).Methods(http.MethodGet)
	s.router.HandleFunc("/flashcards", s.handleCreateSet()).Methods(http.MethodPost)
	s.router.HandleFunc("/flashcards/import", s.handleImport()).Methods(http.MethodPost)
	s.router.HandleFunc("/flashcards/{id}", s.handleGetSet()).Methods(http.MethodGet)
	s.router.HandleFunc("/flashcards/{id}/cards", s.handleAddCard()).Methods(http.MethodPost)
	s.router.HandleFunc("/flashcards/{id}/review", s.handleCardsToReview()).Methods(http.MethodGet)
	s.router.HandleFunc("/flashcards/{id}/due", s.handleDueCards()).Methods(http.MethodGet)
	s.router.HandleFunc("/flashcards/{id}/practice", s.handlePracticeQuiz()).Methods(http.MethodGet)
	s.router.HandleFunc("/flashcards/{id}/cards/{cardID}/review", s.handleRecordReview()).Methods(http.MethodPost)
	s.router.HandleFunc("/flashcards/{id}/cards/{cardID}/reviews", s.handleReviewLogs()).Methods(http.MethodGet)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("HTTP request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleListQuizzes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := s.Banks.List(r.URL.Query().Get("category"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, summaries)
	}
}

func (s *Server) handleCreateQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.NewBank
		if !s.decode(w, r, &in) {
			return
		}
		bank, err := s.Banks.Create(in)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, bank)
	}
}

func (s *Server) handleGenerateQuiz() http.HandlerFunc {
	type request struct {
		Title         string `json:"title" validate:"required"`
		Text          string `json:"text"`
		QuestionCount int    `json:"question_count"`
	}
	validate := validation.New()

	return func(w http.ResponseWriter, r *http.Request) {
		var in request
		if !s.decode(w, r, &in) {
			return
		}
		if err := validate.Struct(in); err != nil {
			s.writeError(w, err)
			return
		}
		bank, err := s.Generator.GenerateFromText(in.Title, in.Text, in.QuestionCount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, bank)
	}
}

func (s *Server) handleGetQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bank, err := s.Banks.Get(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, bank)
	}
}

func (s *Server) handleAddQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.NewQuestion
		if !s.decode(w, r, &in) {
			return
		}
		bank, err := s.Banks.AddQuestion(mux.Vars(r)["id"], in)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, bank)
	}
}

func (s *Server) handleCreateSession() http.HandlerFunc {
	type request struct {
		UserID *string `json:"user_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var in request
		if !s.decodeOptional(w, r, &in) {
			return
		}
		session, err := s.Engine.CreateSession(mux.Vars(r)["id"], in.UserID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.Sessions.Save(r.Context(), session); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, session)
	}
}

func (s *Server) handleQuizResults() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if _, err := s.Banks.Get(id); err != nil {
			s.writeError(w, err)
			return
		}
		results, err := s.History.QuizResults(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, results)
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.Sessions.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, session)
	}
}

func (s *Server) handleAnswer() http.HandlerFunc {
	type request struct {
		QuestionIndex *int `json:"question_index" validate:"required"`
		AnswerIndex   *int `json:"answer_index" validate:"required"`
	}
	validate := validation.New()

	return func(w http.ResponseWriter, r *http.Request) {
		var in request
		if !s.decode(w, r, &in) {
			return
		}
		if err := validate.Struct(in); err != nil {
			s.writeError(w, err)
			return
		}

		s.answerMu.Lock()
		defer s.answerMu.Unlock()

		session, err := s.Sessions.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		session = s.Engine.AnswerQuestion(session, *in.QuestionIndex, *in.AnswerIndex)
		if err := s.Sessions.Save(r.Context(), session); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, session)
	}
}

func (s *Server) handleListSets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := s.Sets.List()
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, summaries)
	}
}

func (s *Server) handleCreateSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in flashcards.NewSet
		if !s.decode(w, r, &in) {
			return
		}
		set, err := s.Sets.Create(in)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, set)
	}
}

func (s *Server) handleImport() http.HandlerFunc {
	type request struct {
		Source string `json:"source" validate:"required"`
		Title  string `json:"title"`
		SetID  string `json:"set_id"`
	}
	type response struct {
		Set    *domain.FlashcardSet `json:"set"`
		Report *importer.Report     `json:"report"`
	}
	validate := validation.New()

	return func(w http.ResponseWriter, r *http.Request) {
		var in request
		if !s.decode(w, r, &in) {
			return
		}
		if err := validate.Struct(in); err != nil {
			s.writeError(w, err)
			return
		}

		var (
			set    *domain.FlashcardSet
			report *importer.Report
			err    error
		)
		if in.SetID != "" {
			set, report, err = s.Importer.ImportInto(r.Context(), in.SetID, in.Source)
		} else {
			set, report, err = s.Importer.Import(r.Context(), in.Source, in.Title)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, response{Set: set, Report: report})
	}
}

func (s *Server) handleGetSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := s.Sets.Get(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, set)
	}
}

func (s *Server) handleAddCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in flashcards.NewCard
		if !s.decode(w, r, &in) {
			return
		}
		set, err := s.Sets.AddCard(mux.Vars(r)["id"], in)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, set)
	}
}

func (s *Server) handleCardsToReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := s.intParam(w, r, "limit", s.ReviewLimit)
		if !ok {
			return
		}
		cards, err := s.Sets.CardsToReview(mux.Vars(r)["id"], limit)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) handleDueCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.Sets.Due(mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) handlePracticeQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, ok := s.intParam(w, r, "count", flashcards.DefaultPracticeCount)
		if !ok {
			return
		}
		practice, err := s.Sets.PracticeQuiz(mux.Vars(r)["id"], count)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, practice)
	}
}

func (s *Server) handleRecordReview() http.HandlerFunc {
	type request struct {
		Difficulty *int `json:"difficulty" validate:"required"`
	}
	validate := validation.New()

	return func(w http.ResponseWriter, r *http.Request) {
		var in request
		if !s.decode(w, r, &in) {
			return
		}
		if err := validate.Struct(in); err != nil {
			s.writeError(w, err)
			return
		}
		vars := mux.Vars(r)
		set, err := s.Sets.RecordReview(vars["id"], vars["cardID"], *in.Difficulty)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, set)
	}
}

func (s *Server) handleReviewLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		set, err := s.Sets.Get(vars["id"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		if set.FindCard(vars["cardID"]) == nil {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "card not found"})
			return
		}
		logs, err := s.History.ReviewLogs(vars["cardID"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		if logs == nil {
			logs = []domain.ReviewLog{}
		}
		s.writeJSON(w, http.StatusOK, logs)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

// writeError maps service errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message(err)})
	case errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, flashcards.ErrNotFound),
		errors.Is(err, sessions.ErrSessionNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, quiz.ErrEmptyBank),
		errors.Is(err, flashcards.ErrNotEnoughCards),
		errors.Is(err, importer.ErrSourceNotAllowed),
		errors.Is(err, gitsource.ErrInvalidURL):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.Error("Request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// decodeOptional is decode that also accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: name + " must be an integer"})
		return 0, false
	}
	return n, true
}
