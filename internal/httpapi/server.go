// Package httpapi exposes the tutor over JSON HTTP endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
	"coursetutor/internal/quiz"
	"coursetutor/internal/service"
	"coursetutor/internal/topics"
)

// MsgUnavailable hides upstream failure details from callers.
const MsgUnavailable = "The assistant is temporarily unavailable."

const maxBodyBytes = 1 << 20

// Tutor is the service surface the handlers need.
type Tutor interface {
	Answer(ctx context.Context, question string, history []domain.Message) (service.AnswerResponse, error)
	ListTopics() []topics.Topic
	GenerateQuiz(ctx context.Context, req quiz.Request) service.QuizResponse
	GradeQuiz(ctx context.Context, req service.GradeRequest) (quiz.Grade, error)
	Chunks() int
}

type Server struct {
	tutor   Tutor
	origins []string
}

func NewServer(t Tutor, allowedOrigins []string) *Server {
	return &Server{tutor: t, origins: allowedOrigins}
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.askHandler)
	mux.HandleFunc("GET /topics", s.topicsHandler)
	mux.HandleFunc("POST /generate-quiz", s.quizHandler)
	mux.HandleFunc("POST /grade-quiz", s.gradeHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return s.logRequests(s.cors(mux))
}

type askRequest struct {
	Question string           `json:"question"`
	History  []domain.Message `json:"history"`
}

type askResponse struct {
	OK         bool   `json:"ok"`
	Answer     string `json:"answer,omitempty"`
	OutOfScope bool   `json:"outOfScope,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, askResponse{Error: "invalid request body"})
		return
	}
	resp, err := s.tutor.Answer(r.Context(), req.Question, req.History)
	switch {
	case errors.Is(err, service.ErrEmptyQuestion):
		writeJSON(w, http.StatusBadRequest, askResponse{Error: "question is required"})
	case domain.IsUpstream(err):
		log.Error().Err(err).Msg("ask: upstream failure")
		writeJSON(w, http.StatusBadGateway, askResponse{Error: MsgUnavailable})
	case err != nil:
		log.Error().Err(err).Msg("ask failed")
		writeJSON(w, http.StatusInternalServerError, askResponse{Error: MsgUnavailable})
	default:
		writeJSON(w, http.StatusOK, askResponse{OK: true, Answer: resp.Answer, OutOfScope: resp.OutOfScope})
	}
}

func (s *Server) topicsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": s.tutor.ListTopics()})
}

func (s *Server) quizHandler(w http.ResponseWriter, r *http.Request) {
	var req quiz.Request
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, service.QuizResponse{Error: "invalid request body"})
		return
	}
	writeJSON(w, http.StatusOK, s.tutor.GenerateQuiz(r.Context(), req))
}

type gradeResponse struct {
	OK bool `json:"ok"`
	*quiz.Grade
	Error string `json:"error,omitempty"`
}

func (s *Server) gradeHandler(w http.ResponseWriter, r *http.Request) {
	var req service.GradeRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, gradeResponse{Error: "invalid request body"})
		return
	}
	g, err := s.tutor.GradeQuiz(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, gradeResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, gradeResponse{OK: true, Grade: &g})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chunks": s.tutor.Chunks()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// cors allows the configured origins. A "*" entry allows any origin and,
// like browsers require for credentialed requests, echoes it back.
func (s *Server) cors(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && (anyOrigin || slices.Contains(s.origins, origin))
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				reqHeaders := r.Header.Get("Access-Control-Request-Headers")
				if reqHeaders == "" {
					reqHeaders = "Content-Type"
				}
				h.Set("Access-Control-Allow-Headers", reqHeaders)
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Str("origin", strings.TrimSpace(r.Header.Get("Origin"))).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
