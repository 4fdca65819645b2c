package gworkspace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"google.golang.org/api/option"

	"intranet/internal/result"
	"intranet/internal/service"
)

type fakeGoogle struct {
	mu      sync.Mutex
	tasks   []map[string]any
	bodies  []map[string]any
	queries []map[string][]string
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	var body map[string]any
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		json.Unmarshal(data, &body)
	}
	snapshot := make(map[string]any, len(body))
	for k, v := range body {
		snapshot[k] = v
	}
	f.bodies = append(f.bodies, snapshot)
	f.queries = append(f.queries, r.URL.Query())

	switch {
	case strings.HasSuffix(r.URL.Path, "/users"):
		json.NewEncoder(w).Encode(map[string]any{"users": []map[string]any{{
			"id":            "u1",
			"primaryEmail":  "ada@contoso.com",
			"name":          map[string]any{"fullName": "Ada Lovelace"},
			"organizations": []map[string]any{{"department": "R&D", "primary": true}},
		}}})
	case strings.HasSuffix(r.URL.Path, "/tasks") && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"items": f.tasks})
	case strings.HasSuffix(r.URL.Path, "/tasks") && r.Method == http.MethodPost:
		body["id"] = "new"
		body["status"] = "needsAction"
		f.tasks = append(f.tasks, body)
		json.NewEncoder(w).Encode(body)
	case r.Method == http.MethodPatch:
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		for _, t := range f.tasks {
			if t["id"] == id {
				for k, v := range body {
					t[k] = v
				}
				json.NewEncoder(w).Encode(t)
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected request", http.StatusTeapot)
	}
}

func newClient(t *testing.T, fg *fakeGoogle) *Client {
	t.Helper()
	srv := httptest.NewServer(fg)
	t.Cleanup(srv.Close)
	c, err := NewWithHTTPClient(context.Background(), srv.Client(), Options{Logger: zaptest.NewLogger(t)},
		option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRead_SortsAndLimits(t *testing.T) {
	fg := &fakeGoogle{tasks: []map[string]any{
		{"id": "a", "title": "Beta", "status": "needsAction", "notes": "n"},
		{"id": "b", "title": "Alpha", "status": "completed", "due": "2024-05-01T00:00:00.000Z"},
		{"id": "c", "title": "Gamma", "status": "needsAction"},
	}}
	c := newClient(t, fg)

	raw, err := c.Read(context.Background(), service.TableTasks, service.ListQueryOptions{
		OrderBy: []string{"Title asc"},
		Top:     2,
	})
	if err != nil {
		t.Fatal(err)
	}
	r := result.Normalize[[]service.Task](raw)
	if !r.IsSuccess || len(r.Result) != 2 {
		t.Fatalf("result = %+v", r)
	}
	if r.Result[0].Title != "Alpha" || !r.Result[0].IsCompleted() || r.Result[0].DueDate == nil {
		t.Errorf("first = %+v", r.Result[0])
	}
	if r.Result[1].ID != "a" || r.Result[1].Description != "n" || r.Result[1].IsCompleted() {
		t.Errorf("second = %+v", r.Result[1])
	}
}

func TestRead_Unsupported(t *testing.T) {
	c := newClient(t, &fakeGoogle{})
	ctx := context.Background()

	tests := []struct {
		table string
		opts  service.ListQueryOptions
	}{
		{service.TableNews, service.ListQueryOptions{}},
		{service.TableTasks, service.ListQueryOptions{Filter: "Title eq 'x'"}},
		{service.TableTasks, service.ListQueryOptions{OrderBy: []string{"Priority desc"}}},
	}
	for _, tt := range tests {
		raw, err := c.Read(ctx, tt.table, tt.opts)
		if err != nil {
			t.Fatalf("Read(%s): %v", tt.table, err)
		}
		if r := result.Normalize[[]service.Task](raw); r.IsSuccess || r.Error == "" {
			t.Errorf("Read(%s, %+v) = %+v, want failure", tt.table, tt.opts, r)
		}
	}
}

func TestCreateAndUpdate(t *testing.T) {
	fg := &fakeGoogle{}
	c := newClient(t, fg)
	ctx := context.Background()

	raw, err := c.Create(ctx, service.TableTasks, service.Fields{"Title": "Audit Q3", "Description": ""})
	if err != nil {
		t.Fatal(err)
	}
	created := result.Normalize[service.Task](raw)
	if !created.IsSuccess || created.Result.ID != "new" || created.Result.Title != "Audit Q3" {
		t.Fatalf("created = %+v", created)
	}
	if diff := cmp.Diff(map[string]any{"title": "Audit Q3", "notes": ""}, fg.bodies[0]); diff != "" {
		t.Errorf("insert body mismatch (-want +got):\n%s", diff)
	}

	raw, err = c.Update(ctx, service.TableTasks, "new", service.Fields{"Title": "Audit Q4", "Description": "d", "AssignedTo": nil})
	if err != nil {
		t.Fatal(err)
	}
	if r := result.Normalize[service.Task](raw); !r.IsSuccess || r.Result.Title != "Audit Q4" {
		t.Errorf("updated = %+v", r)
	}

	raw, err = c.Update(ctx, service.TableTasks, "new", service.Fields{"AssignedTo": "ada@contoso.com"})
	if err != nil {
		t.Fatal(err)
	}
	if r := result.Normalize[service.Task](raw); r.IsSuccess {
		t.Error("assignment accepted, want failure envelope")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	c := newClient(t, &fakeGoogle{})
	_, err := c.Update(context.Background(), service.TableTasks, "missing", service.Fields{"Title": "x"})
	if err == nil || err.Error() != "not found" {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestDelete(t *testing.T) {
	c := newClient(t, &fakeGoogle{})
	ctx := context.Background()

	if err := c.Delete(ctx, service.TableTasks, "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, service.TableEvents, "a"); err == nil {
		t.Error("expected error for events table")
	}
}

func TestSearchUsers(t *testing.T) {
	fg := &fakeGoogle{}
	c := newClient(t, fg)

	raw, err := c.SearchUsers(context.Background(), "ada@contoso.com", 10, true)
	if err != nil {
		t.Fatal(err)
	}
	page := result.Normalize[service.UserPage](raw)
	want := []service.CandidateUser{{
		ID:                "u1",
		DisplayName:       "Ada Lovelace",
		Mail:              "ada@contoso.com",
		UserPrincipalName: "ada@contoso.com",
		Department:        "R&D",
	}}
	if diff := cmp.Diff(want, page.Result.Value); diff != "" {
		t.Errorf("users mismatch (-want +got):\n%s", diff)
	}

	q := fg.queries[len(fg.queries)-1]
	if got := q["query"]; len(got) != 1 || got[0] != "email:'ada@contoso.com'" {
		t.Errorf("query = %v", got)
	}
	if got := q["customer"]; len(got) != 1 || got[0] != DefaultCustomer {
		t.Errorf("customer = %v", got)
	}
	if got := q["maxResults"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("maxResults = %v", got)
	}
}

func TestSearchUsers_NameQueryIsNotAddressMatch(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"ada", "ada"},
		{"Ada Lovelace", "Ada Lovelace"},
		{"ada@", "ada@"},
		{"o'brien@contoso.com", `email:'o\'brien@contoso.com'`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			fg := &fakeGoogle{}
			c := newClient(t, fg)
			if _, err := c.SearchUsers(context.Background(), tt.query, 5, true); err != nil {
				t.Fatal(err)
			}
			q := fg.queries[len(fg.queries)-1]
			if got := q["query"]; len(got) != 1 || got[0] != tt.want {
				t.Errorf("query = %v, want %q", got, tt.want)
			}
		})
	}
}
