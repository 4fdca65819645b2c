package taskview

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"intranet/internal/service"
)

// PriorityFilter selects tasks by priority. FilterAll disables it.
type PriorityFilter string

const (
	FilterAll    PriorityFilter = "all"
	FilterHigh   PriorityFilter = "high"
	FilterMedium PriorityFilter = "medium"
	FilterLow    PriorityFilter = "low"
)

// ParsePriorityFilter parses all, high, medium or low. Empty means all.
func ParsePriorityFilter(s string) (PriorityFilter, error) {
	switch f := PriorityFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterHigh, FilterMedium, FilterLow:
		return f, nil
	}
	return "", fmt.Errorf("invalid priority filter: %s", s)
}

func (f PriorityFilter) priorityID() int {
	switch f {
	case FilterHigh:
		return 1
	case FilterMedium:
		return 2
	case FilterLow:
		return 3
	}
	return 0
}

// FilterTasks returns the tasks whose title or description contains search
// (case-insensitive) and whose priority matches f. Order is preserved.
func FilterTasks(tasks []service.Task, search string, f PriorityFilter) []service.Task {
	needle := strings.ToLower(strings.TrimSpace(search))
	want := f.priorityID()
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		if want != 0 && t.PriorityID != want {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DialogState is the state of the task dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
)

func (s DialogState) String() string {
	switch s {
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// DialogMode tells whether an open dialog creates or edits a task.
type DialogMode int

const (
	ModeCreate DialogMode = iota
	ModeEdit
)

func (m DialogMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Dialog is a snapshot of the task dialog.
type Dialog struct {
	State  DialogState
	Mode   DialogMode
	TaskID string
	Form   Form

	// Err is the error of the last failed submit.
	Err error
}

// View is the task list page state: the cached list, the filters, the
// selection and the task dialog. It is safe for concurrent use.
//
// After Close, results of requests still in flight are discarded.
type View struct {
	svc    *Service
	logger *zap.Logger

	mu       sync.Mutex
	tasks    []service.Task
	loadErr  error
	search   string
	priority PriorityFilter
	selected []string
	dialog   Dialog
	closed   bool
}

// NewView creates a View over svc.
func NewView(svc *Service, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{svc: svc, logger: logger, priority: FilterAll}
}

// Refresh loads the task list through the cache. A failed read keeps the
// tasks already shown.
func (v *View) Refresh(ctx context.Context) error {
	if v.isClosed() {
		return ErrClosed
	}
	st := v.svc.Tasks(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if st.HasData {
		v.tasks = st.Data
	}
	v.loadErr = st.Err
	if st.Err != nil {
		v.logger.Warn("load tasks failed", zap.Error(st.Err))
	}
	return st.Err
}

// Tasks returns the full task list.
func (v *View) Tasks() []service.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.tasks)
}

// Err returns the error of the last load.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// SetSearch sets the search term.
func (v *View) SetSearch(s string) {
	v.mu.Lock()
	v.search = s
	v.mu.Unlock()
}

// SetPriorityFilter sets the priority filter.
func (v *View) SetPriorityFilter(f PriorityFilter) {
	v.mu.Lock()
	v.priority = f
	v.mu.Unlock()
}

// Filtered returns the tasks that pass both filters.
func (v *View) Filtered() []service.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filtered()
}

func (v *View) filtered() []service.Task {
	return FilterTasks(v.tasks, v.search, v.priority)
}

// Select adds or removes id from the selection. Selection order is kept.
func (v *View) Select(id string, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := slices.Index(v.selected, id)
	switch {
	case on && i < 0:
		v.selected = append(v.selected, id)
	case !on && i >= 0:
		v.selected = slices.Delete(v.selected, i, i+1)
	}
}

// SelectAll selects every task of the filtered view, or clears the
// selection.
func (v *View) SelectAll(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = nil
	if !on {
		return
	}
	for _, t := range v.filtered() {
		if id := t.ID.String(); id != "" {
			v.selected = append(v.selected, id)
		}
	}
}

// AllSelected reports whether every task of a non-empty filtered view is
// selected.
func (v *View) AllSelected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	view := v.filtered()
	if len(view) == 0 {
		return false
	}
	for _, t := range view {
		if !slices.Contains(v.selected, t.ID.String()) {
			return false
		}
	}
	return true
}

// Selected returns the selected ids in selection order.
func (v *View) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.selected)
}

// Dialog returns the dialog state.
func (v *View) Dialog() Dialog {
	v.mu.Lock()
	defer v.mu.Unlock()
	d := v.dialog
	d.Form.Assignees = slices.Clone(d.Form.Assignees)
	return d
}

// OpenCreate opens an empty create dialog.
func (v *View) OpenCreate() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.transition(DialogClosed); err != nil {
		return err
	}
	v.dialog = Dialog{State: DialogOpen, Mode: ModeCreate, Form: NewForm()}
	return nil
}

// OpenEdit opens the edit dialog for a task of the filtered view,
// prefilled from the task.
func (v *View) OpenEdit(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.transition(DialogClosed); err != nil {
		return err
	}
	view := v.filtered()
	i := slices.IndexFunc(view, func(t service.Task) bool { return t.ID.String() == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t := view[i]
	form := NewForm()
	form.Title = t.Title
	form.Description = t.Description
	if p, err := service.ParsePriority(string(t.Priority)); err == nil {
		form.Priority = p
	}
	if s, err := service.ParseStatus(string(t.Status)); err == nil {
		form.Status = s
	}
	v.dialog = Dialog{State: DialogOpen, Mode: ModeEdit, TaskID: id, Form: form}
	return nil
}

// SetForm replaces the form of the open dialog.
func (v *View) SetForm(f Form) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.transition(DialogOpen); err != nil {
		return err
	}
	v.dialog.Form = f
	return nil
}

// Cancel closes the open dialog without saving.
func (v *View) Cancel() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.transition(DialogOpen); err != nil {
		return err
	}
	v.dialog = Dialog{}
	return nil
}

// Submit saves the open dialog. On success the dialog closes; on failure
// it reopens with Err set and the form kept.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	if err := v.transition(DialogOpen); err != nil {
		v.mu.Unlock()
		return err
	}
	if strings.TrimSpace(v.dialog.Form.Title) == "" {
		v.mu.Unlock()
		return ErrTitleRequired
	}
	v.dialog.State = DialogSubmitting
	v.dialog.Err = nil
	d := v.dialog
	v.mu.Unlock()

	var err error
	if d.Mode == ModeEdit {
		_, err = v.svc.Update(ctx, d.TaskID, d.Form)
	} else {
		_, err = v.svc.Create(ctx, d.Form)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err != nil {
		v.dialog.State = DialogOpen
		v.dialog.Err = err
		return err
	}
	v.dialog = Dialog{}
	return nil
}

// AssignSelected assigns the selected tasks to the first candidate and
// clears the selection on success.
func (v *View) AssignSelected(ctx context.Context, candidates []service.CandidateUser) (int, error) {
	ids, err := v.selection()
	if err != nil {
		return 0, err
	}
	n, err := v.svc.Assign(ctx, ids, candidates)
	return n, v.finishBatch(err)
}

// DeleteSelected deletes the selected tasks and clears the selection on
// success.
func (v *View) DeleteSelected(ctx context.Context) (int, error) {
	ids, err := v.selection()
	if err != nil {
		return 0, err
	}
	n, err := v.svc.Delete(ctx, ids)
	return n, v.finishBatch(err)
}

// Close disposes the view. Later calls fail with ErrClosed and results of
// in-flight requests are dropped; the requests themselves are not aborted.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *View) selection() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}
	return slices.Clone(v.selected), nil
}

func (v *View) finishBatch(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err == nil {
		v.selected = nil
	}
	return err
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// transition checks that the dialog is in state from. Callers hold mu.
func (v *View) transition(from DialogState) error {
	if v.closed {
		return ErrClosed
	}
	if v.dialog.State != from {
		return fmt.Errorf("%w: dialog is %s", ErrInvalidTransition, v.dialog.State)
	}
	return nil
}
