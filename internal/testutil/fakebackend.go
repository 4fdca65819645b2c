// Package testutil provides testing utilities.
package testutil

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"intranet/internal/service"
)

// ErrNotFound is returned when an item does not exist.
var ErrNotFound = errors.New("not found")

// Envelope selects the response shape a FakeBackend answers with.
type Envelope int

const (
	EnvelopeCanonical Envelope = iota
	EnvelopeLegacy
)

// Call records one backend call.
type Call struct {
	Op      string
	Table   string
	ID      string
	Fields  service.Fields
	Options service.ListQueryOptions
	Query   string
	Top     int
	Exact   bool
}

// FakeBackend is an in-memory implementation of service.Backend for testing.
// Items are stored as decoded JSON objects, so anything written comes back
// the way a real backend would return it.
type FakeBackend struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	users  []service.CandidateUser
	nextID int
	calls  []Call

	// Envelope selects the response shape.
	Envelope Envelope

	// Error injection for testing
	ReadErr   map[string]error // table -> error
	CreateErr error
	DeleteErr map[string]error // id -> error
	SearchErr error

	// UpdateHook runs before every update. n is the 1-based update count.
	// A returned error fails the call as a transport error.
	UpdateHook func(n int, id string, fields service.Fields) error

	// RejectUpdate, when it returns a message, fails the update with a
	// failure envelope instead of applying it.
	RejectUpdate func(id string, fields service.Fields) string

	updates int
}

// NewFakeBackend creates an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		tables:    make(map[string][]map[string]any),
		nextID:    1,
		ReadErr:   make(map[string]error),
		DeleteErr: make(map[string]error),
	}
}

// AddItem stores an item and returns its assigned id.
func (f *FakeBackend) AddItem(table string, item map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(table, item)
}

// AddTask stores a task with the given title and priority id.
func (f *FakeBackend) AddTask(title, description string, priorityID int) string {
	item := map[string]any{"Title": title, "Description": description}
	if priorityID > 0 {
		item["Priority#Id"] = priorityID
	}
	return f.AddItem(service.TableTasks, item)
}

// AddUser adds a directory entry.
func (f *FakeBackend) AddUser(u service.CandidateUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, u)
}

// Item returns a copy of the stored item.
func (f *FakeBackend) Item(table, id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.tables[table] {
		if itemID(it) == id {
			return clone(it), true
		}
	}
	return nil, false
}

// Items returns a copy of every stored item of table.
func (f *FakeBackend) Items(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.tables[table]))
	for _, it := range f.tables[table] {
		out = append(out, clone(it))
	}
	return out
}

// Calls returns the recorded calls, optionally filtered by op.
func (f *FakeBackend) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CallCount counts recorded calls of op against table ("" matches any).
func (f *FakeBackend) CallCount(op, table string) int {
	n := 0
	for _, c := range f.Calls(op) {
		if table == "" || c.Table == table {
			n++
		}
	}
	return n
}

// Read implements service.Transport. Filter supports "Field eq 'value'".
func (f *FakeBackend) Read(ctx context.Context, table string, opts service.ListQueryOptions) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "read", Table: table, Options: opts})

	if err := f.ReadErr[table]; err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(f.tables[table]))
	for _, it := range f.tables[table] {
		ok, err := matchFilter(it, opts.Filter)
		if err != nil {
			return f.failure(err.Error()), nil
		}
		if ok {
			items = append(items, it)
		}
	}

	for i := len(opts.OrderBy) - 1; i >= 0; i-- {
		clause, err := service.ParseOrderClause(opts.OrderBy[i])
		if err != nil {
			return f.failure(err.Error()), nil
		}
		slices.SortStableFunc(items, func(a, b map[string]any) int {
			c := compareValues(a[clause.Field], b[clause.Field])
			if clause.Desc {
				return -c
			}
			return c
		})
	}

	if opts.Top > 0 && len(items) > opts.Top {
		items = items[:opts.Top]
	}
	return f.success(items), nil
}

// Create implements service.Transport.
func (f *FakeBackend) Create(ctx context.Context, table string, fields service.Fields) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "create", Table: table, Fields: cloneFields(fields)})

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	item, err := decodeFields(fields)
	if err != nil {
		return f.failure(err.Error()), nil
	}
	id := f.insert(table, item)
	created, _ := f.find(table, id)
	return f.success(created), nil
}

// Update implements service.Transport.
func (f *FakeBackend) Update(ctx context.Context, table, id string, fields service.Fields) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.calls = append(f.calls, Call{Op: "update", Table: table, ID: id, Fields: cloneFields(fields)})

	if f.UpdateHook != nil {
		if err := f.UpdateHook(f.updates, id, fields); err != nil {
			return nil, err
		}
	}
	if f.RejectUpdate != nil {
		if msg := f.RejectUpdate(id, fields); msg != "" {
			return f.failure(msg), nil
		}
	}

	item, ok := f.find(table, id)
	if !ok {
		return f.failure("item not found: " + id), nil
	}
	patch, err := decodeFields(fields)
	if err != nil {
		return f.failure(err.Error()), nil
	}
	for k, v := range patch {
		item[k] = v
	}
	return f.success(item), nil
}

// Delete implements service.Transport.
func (f *FakeBackend) Delete(ctx context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "delete", Table: table, ID: id})

	if err := f.DeleteErr[id]; err != nil {
		return err
	}
	items := f.tables[table]
	for i, it := range items {
		if itemID(it) == id {
			f.tables[table] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// SearchUsers implements service.Directory. Non-exact searches match on
// display name prefix as well as mail and principal name.
func (f *FakeBackend) SearchUsers(ctx context.Context, query string, top int, exact bool) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "search", Query: query, Top: top, Exact: exact})

	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	q := strings.ToLower(query)
	page := service.UserPage{Value: []service.CandidateUser{}}
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Mail), q) ||
			strings.Contains(strings.ToLower(u.UserPrincipalName), q) ||
			strings.HasPrefix(strings.ToLower(u.DisplayName), q) {
			page.Value = append(page.Value, u)
		}
		if top > 0 && len(page.Value) == top {
			break
		}
	}
	return f.success(page), nil
}

func (f *FakeBackend) insert(table string, item map[string]any) string {
	it, err := decodeFields(service.Fields(item))
	if err != nil {
		panic(fmt.Sprintf("testutil: item not JSON-encodable: %v", err))
	}
	id := strconv.Itoa(f.nextID)
	f.nextID++
	it["ID"] = float64(f.nextID - 1)
	f.tables[table] = append(f.tables[table], it)
	return id
}

func (f *FakeBackend) find(table, id string) (map[string]any, bool) {
	for _, it := range f.tables[table] {
		if itemID(it) == id {
			return it, true
		}
	}
	return nil, false
}

func (f *FakeBackend) success(v any) json.RawMessage {
	var env any
	switch f.Envelope {
	case EnvelopeLegacy:
		env = map[string]any{"success": true, "data": v}
	default:
		env = map[string]any{"isSuccess": true, "result": v}
	}
	raw, _ := json.Marshal(env)
	return raw
}

func (f *FakeBackend) failure(msg string) json.RawMessage {
	var env any
	switch f.Envelope {
	case EnvelopeLegacy:
		env = map[string]any{"success": false, "error": msg}
	default:
		env = map[string]any{"isSuccess": false, "error": msg}
	}
	raw, _ := json.Marshal(env)
	return raw
}

func itemID(it map[string]any) string {
	switch v := it["ID"].(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	}
	return fmt.Sprint(it["ID"])
}

// matchFilter supports a single "Field eq 'value'" expression.
func matchFilter(it map[string]any, filter string) (bool, error) {
	if strings.TrimSpace(filter) == "" {
		return true, nil
	}
	field, literal, ok := strings.Cut(filter, " eq ")
	if !ok || !strings.HasPrefix(literal, "'") || !strings.HasSuffix(literal, "'") || len(literal) < 2 {
		return false, fmt.Errorf("unsupported filter: %s", filter)
	}
	want := strings.ReplaceAll(literal[1:len(literal)-1], "''", "'")

	var v any = it
	for _, part := range strings.Split(strings.TrimSpace(field), "/") {
		m, ok := v.(map[string]any)
		if !ok {
			return false, nil
		}
		v = m[part]
	}
	return fmt.Sprint(v) == want, nil
}

func compareValues(a, b any) int {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func decodeFields(fields service.Fields) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func clone(it map[string]any) map[string]any {
	out := make(map[string]any, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func cloneFields(f service.Fields) service.Fields {
	if f == nil {
		return nil
	}
	out := make(service.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
