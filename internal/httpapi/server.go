// Package httpapi exposes the task workflows and content feeds as a JSON
// API for the browser front end. Every response body is a canonical
// result envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"intranet/internal/directory"
	"intranet/internal/imageref"
	"intranet/internal/result"
	"intranet/internal/service"
	"intranet/internal/taskview"
	"intranet/internal/webparts"
)

const maxRequestBytes = 1 << 20

// TaskRow is a task with its display fields.
type TaskRow struct {
	service.Task
	AssigneeName  string `json:"assigneeName"`
	PriorityLabel string `json:"priorityLabel"`
	Overdue       bool   `json:"overdue"`
}

type taskRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Priority    string                  `json:"priority"`
	Status      string                  `json:"status"`
	Assignees   []service.CandidateUser `json:"assignees"`
}

type batchRequest struct {
	IDs       []string                `json:"ids"`
	Assignees []service.CandidateUser `json:"assignees"`
}

type batchResponse struct {
	Applied int `json:"applied"`
}

// Server serves the JSON API.
type Server struct {
	tasks  *taskview.Service
	feeds  *webparts.Feeds
	people *directory.Validator
	images imageref.Resolver
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Server.
func New(tasks *taskview.Service, feeds *webparts.Feeds, people *directory.Validator, images imageref.Resolver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tasks:  tasks,
		feeds:  feeds,
		people: people,
		images: images,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the routed API wrapped in CORS handling. An empty
// allowedOrigins allows any origin.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, result.Success("ok"))
	})

	mux.HandleFunc("GET /api/tasks", s.listTasks)
	mux.HandleFunc("POST /api/tasks", s.createTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.updateTask)
	mux.HandleFunc("POST /api/tasks/assign", s.assignTasks)
	mux.HandleFunc("POST /api/tasks/delete", s.deleteTasks)

	mux.HandleFunc("GET /api/news", s.news)
	mux.HandleFunc("GET /api/news/latest", s.newsList)
	mux.HandleFunc("GET /api/news/get-involved", s.getInvolved)
	mux.HandleFunc("GET /api/carousel", s.carousel)
	mux.HandleFunc("GET /api/events", s.events)
	mux.HandleFunc("GET /api/hero", s.hero)
	mux.HandleFunc("GET /api/hero/layers/{type}", s.heroLayer)
	mux.HandleFunc("GET /api/trending", s.trending)

	mux.HandleFunc("GET /api/people", s.searchPeople)
	mux.HandleFunc("GET /api/image", s.resolveImage)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(mux)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := taskview.ParsePriorityFilter(r.URL.Query().Get("priority"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	tasks, err := s.tasks.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusBadGateway, err)
		return
	}
	now := s.now()
	rows := make([]TaskRow, 0, len(tasks))
	for _, t := range taskview.FilterTasks(tasks, r.URL.Query().Get("search"), filter) {
		rows = append(rows, TaskRow{
			Task:          t,
			AssigneeName:  taskview.AssigneeName(t),
			PriorityLabel: taskview.PriorityLabel(t),
			Overdue:       t.IsOverdue(now),
		})
	}
	writeJSON(w, http.StatusOK, result.Success(rows))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.tasks.Create(r.Context(), req.form())
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Success(task))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.tasks.Update(r.Context(), r.PathValue("id"), req.form())
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result.Success(task))
}

func (s *Server) assignTasks(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.tasks.Assign(r.Context(), req.IDs, req.Assignees)
	s.batchDone(w, n, err)
}

func (s *Server) deleteTasks(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.tasks.Delete(r.Context(), req.IDs)
	s.batchDone(w, n, err)
}

func (s *Server) batchDone(w http.ResponseWriter, n int, err error) {
	if err != nil {
		s.logger.Warn("batch stopped", zap.Int("applied", n), zap.Error(err))
		writeJSON(w, statusFor(err), result.Result[batchResponse]{
			Result: batchResponse{Applied: n},
			Error:  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result.Success(batchResponse{Applied: n}))
}

func (s *Server) news(w http.ResponseWriter, r *http.Request) {
	items, err := s.feeds.NewsByCategory(r.Context(), r.URL.Query().Get("category"), intParam(r, "max"))
	s.respond(w, items, err)
}

func (s *Server) newsList(w http.ResponseWriter, r *http.Request) {
	items, err := s.feeds.NewsList(r.Context(), intParam(r, "max"))
	s.respond(w, items, err)
}

func (s *Server) getInvolved(w http.ResponseWriter, r *http.Request) {
	item, err := s.feeds.GetInvolved(r.Context(), r.URL.Query().Get("tag"))
	s.respond(w, item, err)
}

func (s *Server) carousel(w http.ResponseWriter, r *http.Request) {
	items, err := s.feeds.Carousel(r.Context(), intParam(r, "max"))
	s.respond(w, items, err)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	items, err := s.feeds.Events(r.Context())
	s.respond(w, webparts.Upcoming(items), err)
}

func (s *Server) hero(w http.ResponseWriter, r *http.Request) {
	layout, err := s.feeds.Hero(r.Context(), intParam(r, "max"))
	s.respond(w, layout, err)
}

func (s *Server) heroLayer(w http.ResponseWriter, r *http.Request) {
	item, err := s.feeds.HeroLayer(r.Context(), r.PathValue("type"))
	s.respond(w, item, err)
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	cards, err := s.feeds.Trending(r.Context(), intParam(r, "max"))
	s.respond(w, cards, err)
}

func (s *Server) searchPeople(w http.ResponseWriter, r *http.Request) {
	users, err := s.people.Search(r.Context(), r.URL.Query().Get("q"))
	if users == nil {
		users = []service.CandidateUser{}
	}
	s.respond(w, users, err)
}

func (s *Server) resolveImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, result.Success(s.images.Resolve(q.Get("src"), q.Get("fallback"))))
}

func (s *Server) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		s.fail(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Success(v))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("invalid json: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, result.Failure[any](err.Error()))
}

func (req taskRequest) form() taskview.Form {
	form := taskview.NewForm()
	form.Title = req.Title
	form.Description = req.Description
	form.Assignees = req.Assignees
	if p, err := service.ParsePriority(req.Priority); err == nil {
		form.Priority = p
	}
	if st, err := service.ParseStatus(req.Status); err == nil {
		form.Status = st
	}
	return form
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, taskview.ErrTitleRequired),
		errors.Is(err, taskview.ErrNoSelection),
		errors.Is(err, taskview.ErrNoAssignee):
		return http.StatusBadRequest
	case errors.Is(err, taskview.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, taskview.ErrAssigneeNotValidated):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
