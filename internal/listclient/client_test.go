package listclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"intranet/internal/listclient"
	"intranet/internal/result"
	"intranet/internal/service"
	"intranet/internal/testutil"
)

func TestClient_GetAllPassesOptionsThrough(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.AddItem(service.TableTrending, map[string]any{"Title": "A", "TrendingScore": 3})
	backend.AddItem(service.TableTrending, map[string]any{"Title": "B", "TrendingScore": 9})
	backend.AddItem(service.TableTrending, map[string]any{"Title": "C", "TrendingScore": 5})

	client := listclient.NewTrending(backend, zaptest.NewLogger(t))
	opts := &service.ListQueryOptions{OrderBy: []string{"TrendingScore desc"}, Top: 2}

	raw, err := client.GetAll(context.Background(), opts)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	res := result.Normalize[[]service.Trending](raw)
	if !res.IsSuccess {
		t.Fatalf("expected success, got %q", res.Error)
	}
	var titles []string
	for _, it := range res.Result {
		titles = append(titles, it.Title)
	}
	if diff := cmp.Diff([]string{"B", "C"}, titles); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}

	calls := backend.Calls("read")
	if len(calls) != 1 {
		t.Fatalf("expected 1 read, got %d", len(calls))
	}
	if diff := cmp.Diff(*opts, calls[0].Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_CreateRejectsID(t *testing.T) {
	backend := testutil.NewFakeBackend()
	client := listclient.NewTasks(backend, nil)

	_, err := client.Create(context.Background(), service.Fields{"ID": 5, "Title": "x"})
	if !errors.Is(err, listclient.ErrIDAssigned) {
		t.Errorf("expected ErrIDAssigned, got %v", err)
	}
	if n := backend.CallCount("create", ""); n != 0 {
		t.Errorf("expected no backend call, got %d", n)
	}
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	backend := testutil.NewFakeBackend()
	client := listclient.NewTasks(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	raw, err := client.Create(ctx, service.Fields{"Title": "Audit Q3", "Description": ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := result.Normalize[service.Task](raw)
	if !created.IsSuccess || created.Result.ID == "" {
		t.Fatalf("expected created task with id, got %+v", created)
	}

	raw, err = client.Update(ctx, created.Result.ID.String(), service.Fields{"Description": "quarterly"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated := result.Normalize[service.Task](raw)
	if updated.Result.Description != "quarterly" || updated.Result.Title != "Audit Q3" {
		t.Errorf("unexpected updated task %+v", updated.Result)
	}

	if err := client.Delete(ctx, created.Result.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := client.Delete(ctx, created.Result.ID.String()); !errors.Is(err, testutil.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestClient_NoRetry(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.ReadErr[service.TableNews] = errors.New("connection reset")
	client := listclient.NewNews(backend, nil)

	if _, err := client.GetAll(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if n := backend.CallCount("read", service.TableNews); n != 1 {
		t.Errorf("expected exactly one read, got %d", n)
	}
}

func TestUsers_DefaultsTop(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.AddUser(service.CandidateUser{ID: "1", DisplayName: "Ada", Mail: "ada@contoso.com"})
	users := listclient.NewUsers(backend, nil)

	raw, err := users.Search(context.Background(), "ada@contoso.com", 0, true)
	if err != nil {
		t.Fatal(err)
	}
	page := result.Normalize[service.UserPage](raw)
	if len(page.Result.Value) != 1 {
		t.Fatalf("expected one user, got %+v", page)
	}
	calls := backend.Calls("search")
	if calls[0].Top != listclient.DefaultSearchTop || !calls[0].Exact {
		t.Errorf("unexpected search call %+v", calls[0])
	}
}
