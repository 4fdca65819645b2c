// Package taskview implements the task list workflows: cached reads,
// validated create/update/assign/delete, and the stateful view that
// filters, selects and drives the task dialog.
package taskview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"intranet/internal/directory"
	"intranet/internal/listclient"
	"intranet/internal/querycache"
	"intranet/internal/result"
	"intranet/internal/service"
)

// TasksKey is the cache key of the full task list.
var TasksKey = querycache.Key{querycache.NamespaceTasks}

// Form holds the editable fields of the task dialog.
type Form struct {
	Title       string
	Description string
	Priority    service.Priority
	Status      service.Status
	Assignees   []service.CandidateUser
}

// NewForm returns an empty form with the dialog defaults.
func NewForm() Form {
	return Form{Priority: service.PriorityMedium, Status: service.StatusNotStarted}
}

type write struct {
	id     string
	fields service.Fields
}

// Service runs task reads and writes. Every successful write invalidates
// the cached task list.
type Service struct {
	tasks     *listclient.Client
	validator *directory.Validator
	cache     *querycache.Cache
	logger    *zap.Logger

	create *querycache.Mutation[service.Fields, service.Task]
	update *querycache.Mutation[write, service.Task]
	remove *querycache.Mutation[string, struct{}]
}

// NewService creates a Service.
func NewService(tasks *listclient.Client, validator *directory.Validator, cache *querycache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		tasks:     tasks,
		validator: validator,
		cache:     cache,
		logger:    logger,
	}
	s.create = querycache.NewMutation(cache, s.doCreate, TasksKey)
	s.update = querycache.NewMutation(cache, s.doUpdate, TasksKey)
	s.remove = querycache.NewMutation(cache, s.doDelete, TasksKey)
	return s
}

// Tasks returns the cached task list, fetching it when missing or stale.
func (s *Service) Tasks(ctx context.Context) querycache.State[[]service.Task] {
	return querycache.Query(ctx, s.cache, TasksKey, s.fetchTasks)
}

// List returns the task list or the read error.
func (s *Service) List(ctx context.Context) ([]service.Task, error) {
	st := s.Tasks(ctx)
	if st.Err != nil && !st.HasData {
		return nil, st.Err
	}
	return st.Data, nil
}

// Pending reports whether any write is in flight.
func (s *Service) Pending() bool {
	return s.create.IsPending() || s.update.IsPending() || s.remove.IsPending()
}

// Create creates a task from form. The assignee, if any, must validate.
func (s *Service) Create(ctx context.Context, form Form) (service.Task, error) {
	if strings.TrimSpace(form.Title) == "" {
		return service.Task{}, ErrTitleRequired
	}
	out, err := s.resolve(ctx, form.Assignees)
	if err != nil {
		return service.Task{}, err
	}

	fields := service.Fields{
		"Title":       form.Title,
		"Description": form.Description,
	}
	if out.Field != nil {
		fields["AssignedTo"] = out.Field
	}
	task, err := s.create.Mutate(ctx, fields)
	if err != nil {
		s.logger.Error("create task failed", zap.String("title", form.Title), zap.Error(err))
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Update saves form to the task with the given id. The structured person
// field is written first; when that write fails the assignee is retried
// as a plain email address. The error of every failed attempt is joined.
func (s *Service) Update(ctx context.Context, id string, form Form) (service.Task, error) {
	if strings.TrimSpace(form.Title) == "" {
		return service.Task{}, ErrTitleRequired
	}
	if id == "" {
		return service.Task{}, ErrTaskNotFound
	}
	out, err := s.resolve(ctx, form.Assignees)
	if err != nil {
		return service.Task{}, err
	}

	var assignee any
	if out.Field != nil {
		assignee = out.Field
	}
	email := ""
	if out.Person != nil {
		email = out.Person.Email
	}
	attempts := []service.Fields{
		{"Title": form.Title, "Description": form.Description, "AssignedTo": assignee},
		{"Title": form.Title, "Description": form.Description, "AssignedTo": email},
	}

	var errs []error
	for i, fields := range attempts {
		task, err := s.update.Mutate(ctx, write{id: id, fields: fields})
		if err == nil {
			return task, nil
		}
		s.logger.Warn("update task failed", zap.String("id", id), zap.Int("attempt", i+1), zap.Error(err))
		errs = append(errs, err)
	}
	return service.Task{}, fmt.Errorf("update task %s: %w", id, errors.Join(errs...))
}

// Assign assigns every task in ids to the first candidate. The candidate is
// validated once; updates run one at a time in order and stop at the first
// failure. It returns the number of tasks updated.
func (s *Service) Assign(ctx context.Context, ids []string, candidates []service.CandidateUser) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}
	if len(candidates) == 0 {
		return 0, ErrNoAssignee
	}
	out, err := s.resolve(ctx, candidates)
	if err != nil {
		return 0, err
	}
	if out.Field == nil {
		return 0, ErrAssigneeNotValidated
	}

	for i, id := range ids {
		if _, err := s.update.Mutate(ctx, write{id: id, fields: service.Fields{"AssignedTo": out.Field}}); err != nil {
			s.logger.Error("assign task failed", zap.String("id", id), zap.Error(err))
			return i, &BatchError{Op: "assign", ID: id, Applied: i, Total: len(ids), Err: err}
		}
	}
	return len(ids), nil
}

// Delete deletes every task in ids, one at a time, stopping at the first
// failure. It returns the number of tasks deleted.
func (s *Service) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}
	for i, id := range ids {
		if _, err := s.remove.Mutate(ctx, id); err != nil {
			s.logger.Error("delete task failed", zap.String("id", id), zap.Error(err))
			return i, &BatchError{Op: "delete", ID: id, Applied: i, Total: len(ids), Err: err}
		}
	}
	return len(ids), nil
}

func (s *Service) resolve(ctx context.Context, candidates []service.CandidateUser) (directory.Outcome, error) {
	out := s.validator.ResolveAssignee(ctx, candidates)
	if len(candidates) > 0 && !out.Validated {
		return out, fmt.Errorf("%w: %s", ErrAssigneeNotValidated, out.Reason)
	}
	return out, nil
}

func (s *Service) fetchTasks(ctx context.Context) ([]service.Task, error) {
	raw, err := s.tasks.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	r := result.Normalize[[]service.Task](raw)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	if r.Result == nil {
		return []service.Task{}, nil
	}
	return r.Result, nil
}

func (s *Service) doCreate(ctx context.Context, fields service.Fields) (service.Task, error) {
	raw, err := s.tasks.Create(ctx, fields)
	if err != nil {
		return service.Task{}, err
	}
	r := result.Normalize[service.Task](raw)
	return r.Result, r.Err()
}

func (s *Service) doUpdate(ctx context.Context, w write) (service.Task, error) {
	raw, err := s.tasks.Update(ctx, w.id, w.fields)
	if err != nil {
		return service.Task{}, err
	}
	r := result.Normalize[service.Task](raw)
	return r.Result, r.Err()
}

func (s *Service) doDelete(ctx context.Context, id string) (struct{}, error) {
	return struct{}{}, s.tasks.Delete(ctx, id)
}
