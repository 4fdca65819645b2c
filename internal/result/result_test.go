package result_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"intranet/internal/result"
)

type item struct {
	ID    int    `json:"ID"`
	Title string `json:"Title"`
}

func TestDecode_CanonicalIsReturnedUnchanged(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want result.Result[[]item]
	}{
		{
			name: "success",
			raw:  `{"isSuccess":true,"result":[{"ID":1,"Title":"Fix bug"}]}`,
			want: result.Result[[]item]{IsSuccess: true, Result: []item{{ID: 1, Title: "Fix bug"}}},
		},
		{
			name: "failure",
			raw:  `{"isSuccess":false,"error":"list not found"}`,
			want: result.Result[[]item]{Error: "list not found"},
		},
		{
			name: "failure with stray result",
			raw:  `{"isSuccess":false,"result":[],"error":"boom"}`,
			want: result.Result[[]item]{Result: []item{}, Error: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format := result.Decode[[]item]([]byte(tt.raw))
			if format != result.FormatCanonical {
				t.Errorf("expected canonical format, got %s", format)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_LegacyIsMapped(t *testing.T) {
	got, format := result.Decode[item]([]byte(`{"success":true,"data":{"ID":7,"Title":"Audit Q3"}}`))
	if format != result.FormatLegacy {
		t.Errorf("expected legacy format, got %s", format)
	}
	want := result.Result[item]{IsSuccess: true, Result: item{ID: 7, Title: "Audit Q3"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	got = result.Normalize[item]([]byte(`{"success":false,"error":"throttled"}`))
	want = result.Result[item]{Error: "throttled"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_UnknownShapes(t *testing.T) {
	for _, raw := range []string{`{}`, `null`, `42`, `[1,2]`, `"text"`, `not json`, ``, `{"value":[]}`} {
		t.Run(raw, func(t *testing.T) {
			got, format := result.Decode[[]item]([]byte(raw))
			if format != result.FormatUnknown {
				t.Errorf("expected unknown format, got %s", format)
			}
			want := result.Result[[]item]{Error: result.UnknownFormat}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_StructuredErrorKeptAsJSON(t *testing.T) {
	got := result.Normalize[item]([]byte(`{"success":false,"error":{"code": 400, "message":"bad field"}}`))
	if got.IsSuccess {
		t.Fatal("expected failure")
	}
	if got.Error != `{"code":400,"message":"bad field"}` {
		t.Errorf("unexpected error text %q", got.Error)
	}
}

func TestDecode_BadPayloadBecomesFailure(t *testing.T) {
	got := result.Normalize[[]item]([]byte(`{"isSuccess":true,"result":{"not":"a list"}}`))
	if got.IsSuccess {
		t.Fatal("expected failure for undecodable result")
	}
	if got.Error == "" {
		t.Error("expected decode error message")
	}

	got = result.Normalize[[]item]([]byte(`{"isSuccess":"yes"}`))
	if got.IsSuccess || got.Error == "" {
		t.Errorf("expected failure for non-bool flag, got %+v", got)
	}
}

func TestResult_Err(t *testing.T) {
	if err := result.Success(1).Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	err := result.Failure[int]("nope").Err()
	if !errors.Is(err, result.ErrOperationFailed) {
		t.Errorf("expected ErrOperationFailed, got %v", err)
	}
	if err.Error() != "operation failed: nope" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err := (result.Result[int]{}).Err(); err != result.ErrOperationFailed {
		t.Errorf("expected bare ErrOperationFailed, got %v", err)
	}
}
