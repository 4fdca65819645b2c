package taskview

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"intranet/internal/directory"
	"intranet/internal/listclient"
	"intranet/internal/querycache"
	"intranet/internal/result"
	"intranet/internal/service"
	"intranet/internal/testutil"
)

var ada = service.CandidateUser{
	ID:                "u1",
	DisplayName:       "Ada Lovelace",
	Mail:              "ada@contoso.com",
	UserPrincipalName: "ada@contoso.onmicrosoft.com",
}

func newService(t *testing.T) (*Service, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend()
	fb.AddUser(ada)

	logger := zaptest.NewLogger(t)
	cfg := querycache.DefaultConfig()
	cfg.RetryDelay = 0
	cache := querycache.New(cfg, logger)
	t.Cleanup(cache.Wait)

	validator := directory.NewValidator(listclient.NewUsers(fb, logger), cache, logger)
	return NewService(listclient.NewTasks(fb, logger), validator, cache, logger), fb
}

func TestCreate_WithoutAssignee(t *testing.T) {
	svc, fb := newService(t)

	form := NewForm()
	form.Title = "Audit Q3"
	task, err := svc.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID == "" || task.Title != "Audit Q3" {
		t.Errorf("created task = %+v", task)
	}

	calls := fb.Calls("create")
	if len(calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(calls))
	}
	want := service.Fields{"Title": "Audit Q3", "Description": ""}
	if diff := cmp.Diff(want, calls[0].Fields); diff != "" {
		t.Errorf("create payload mismatch (-want +got):\n%s", diff)
	}
	if n := fb.CallCount("search", ""); n != 0 {
		t.Errorf("search calls = %d, want 0", n)
	}
}

func TestCreate_WithValidatedAssignee(t *testing.T) {
	svc, fb := newService(t)

	form := Form{Title: "Review", Assignees: []service.CandidateUser{ada}}
	if _, err := svc.Create(context.Background(), form); err != nil {
		t.Fatalf("Create: %v", err)
	}
	calls := fb.Calls("create")
	if len(calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(calls))
	}
	field, ok := calls[0].Fields["AssignedTo"].(service.PersonField)
	if !ok {
		t.Fatalf("AssignedTo = %T, want PersonField", calls[0].Fields["AssignedTo"])
	}
	if diff := cmp.Diff(directory.BuildPersonField(ada), field); diff != "" {
		t.Errorf("person field mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_UnvalidatedAssigneeBlocksWrite(t *testing.T) {
	svc, fb := newService(t)

	form := Form{Title: "Review", Assignees: []service.CandidateUser{{Mail: "ghost@contoso.com"}}}
	_, err := svc.Create(context.Background(), form)
	if !errors.Is(err, ErrAssigneeNotValidated) {
		t.Fatalf("err = %v, want ErrAssigneeNotValidated", err)
	}
	if n := fb.CallCount("create", ""); n != 0 {
		t.Errorf("create calls = %d, want 0", n)
	}
}

func TestCreate_TitleRequired(t *testing.T) {
	svc, fb := newService(t)

	_, err := svc.Create(context.Background(), Form{Title: "   "})
	if !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("err = %v, want ErrTitleRequired", err)
	}
	if n := len(fb.Calls("")); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestUpdate_FallsBackToEmail(t *testing.T) {
	svc, fb := newService(t)
	id := fb.AddTask("Old", "", 2)
	fb.RejectUpdate = func(_ string, fields service.Fields) string {
		if _, structured := fields["AssignedTo"].(service.PersonField); structured {
			return "Invalid person value"
		}
		return ""
	}

	form := Form{Title: "New", Description: "d", Assignees: []service.CandidateUser{ada}}
	if _, err := svc.Update(context.Background(), id, form); err != nil {
		t.Fatalf("Update: %v", err)
	}

	calls := fb.Calls("update")
	if len(calls) != 2 {
		t.Fatalf("update calls = %d, want 2", len(calls))
	}
	want := service.Fields{"Title": "New", "Description": "d", "AssignedTo": "ada@contoso.com"}
	if diff := cmp.Diff(want, calls[1].Fields); diff != "" {
		t.Errorf("fallback payload mismatch (-want +got):\n%s", diff)
	}
	item, _ := fb.Item(service.TableTasks, id)
	if item["AssignedTo"] != "ada@contoso.com" || item["Title"] != "New" {
		t.Errorf("stored item = %v", item)
	}
}

func TestUpdate_BothAttemptsFail(t *testing.T) {
	svc, fb := newService(t)
	id := fb.AddTask("Old", "", 0)
	fb.RejectUpdate = func(string, service.Fields) string { return "list is read-only" }

	_, err := svc.Update(context.Background(), id, Form{Title: "New"})
	if !errors.Is(err, result.ErrOperationFailed) {
		t.Fatalf("err = %v, want ErrOperationFailed", err)
	}
	if n := fb.CallCount("update", ""); n != 2 {
		t.Errorf("update calls = %d, want 2", n)
	}
}

func TestUpdate_ClearsAssignee(t *testing.T) {
	svc, fb := newService(t)
	id := fb.AddTask("Old", "", 0)

	if _, err := svc.Update(context.Background(), id, Form{Title: "Old"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	calls := fb.Calls("update")
	if len(calls) != 1 {
		t.Fatalf("update calls = %d, want 1", len(calls))
	}
	v, ok := calls[0].Fields["AssignedTo"]
	if !ok || v != nil {
		t.Errorf("AssignedTo = %v (present %v), want explicit nil", v, ok)
	}
}

func TestAssign_SequentialIdenticalPayloads(t *testing.T) {
	svc, fb := newService(t)
	ids := []string{fb.AddTask("a", "", 1), fb.AddTask("b", "", 2), fb.AddTask("c", "", 3)}

	n, err := svc.Assign(context.Background(), ids, []service.CandidateUser{ada})
	if err != nil || n != 3 {
		t.Fatalf("Assign = %d, %v", n, err)
	}

	calls := fb.Calls("update")
	if len(calls) != 3 {
		t.Fatalf("update calls = %d, want 3", len(calls))
	}
	for i, c := range calls {
		if c.ID != ids[i] {
			t.Errorf("call %d id = %s, want %s", i, c.ID, ids[i])
		}
		if diff := cmp.Diff(calls[0].Fields, c.Fields); diff != "" {
			t.Errorf("call %d payload differs (-first +got):\n%s", i, diff)
		}
	}
	if n := fb.CallCount("search", ""); n != 1 {
		t.Errorf("search calls = %d, want 1", n)
	}
}

func TestAssign_AbortsOnFirstFailure(t *testing.T) {
	svc, fb := newService(t)
	ids := []string{fb.AddTask("a", "", 1), fb.AddTask("b", "", 2), fb.AddTask("c", "", 3)}
	boom := errors.New("backend unavailable")
	fb.UpdateHook = func(n int, _ string, _ service.Fields) error {
		if n == 2 {
			return boom
		}
		return nil
	}

	n, err := svc.Assign(context.Background(), ids, []service.CandidateUser{ada})
	if n != 1 {
		t.Errorf("applied = %d, want 1", n)
	}
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BatchError", err)
	}
	if be.ID != ids[1] || be.Applied != 1 || be.Total != 3 || !errors.Is(err, boom) {
		t.Errorf("batch error = %+v", be)
	}
	if got := fb.CallCount("update", ""); got != 2 {
		t.Errorf("update calls = %d, want 2", got)
	}
}

func TestAssign_Preconditions(t *testing.T) {
	svc, fb := newService(t)
	id := fb.AddTask("a", "", 1)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, nil, []service.CandidateUser{ada}); !errors.Is(err, ErrNoSelection) {
		t.Errorf("no selection: err = %v", err)
	}
	if _, err := svc.Assign(ctx, []string{id}, nil); !errors.Is(err, ErrNoAssignee) {
		t.Errorf("no assignee: err = %v", err)
	}
	if _, err := svc.Assign(ctx, []string{id}, []service.CandidateUser{{Mail: "ghost@contoso.com"}}); !errors.Is(err, ErrAssigneeNotValidated) {
		t.Errorf("unknown user: err = %v", err)
	}
	if n := fb.CallCount("update", ""); n != 0 {
		t.Errorf("update calls = %d, want 0", n)
	}
}

func TestDelete_AbortsOnFirstFailure(t *testing.T) {
	svc, fb := newService(t)
	ids := []string{fb.AddTask("a", "", 1), fb.AddTask("b", "", 2), fb.AddTask("c", "", 3)}
	fb.DeleteErr[ids[1]] = errors.New("locked")

	n, err := svc.Delete(context.Background(), ids)
	if n != 1 || err == nil {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if got := fb.CallCount("delete", ""); got != 2 {
		t.Errorf("delete calls = %d, want 2", got)
	}
	if _, ok := fb.Item(service.TableTasks, ids[2]); !ok {
		t.Error("third task deleted after failure")
	}
}

func TestTasks_WriteInvalidatesList(t *testing.T) {
	svc, fb := newService(t)
	fb.AddTask("a", "", 1)
	ctx := context.Background()

	if got, err := svc.List(ctx); err != nil || len(got) != 1 {
		t.Fatalf("List = %v, %v", got, err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	if n := fb.CallCount("read", service.TableTasks); n != 1 {
		t.Fatalf("reads = %d, want 1", n)
	}

	if _, err := svc.Create(ctx, Form{Title: "b"}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.List(ctx)
	if err != nil || len(got) != 2 {
		t.Fatalf("List after create = %v, %v", got, err)
	}
	if n := fb.CallCount("read", service.TableTasks); n != 2 {
		t.Errorf("reads = %d, want 2", n)
	}
}

func TestTasks_LegacyEnvelope(t *testing.T) {
	svc, fb := newService(t)
	fb.Envelope = testutil.EnvelopeLegacy
	fb.AddTask("a", "", 1)

	got, err := svc.List(context.Background())
	if err != nil || len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("List = %+v, %v", got, err)
	}
}
