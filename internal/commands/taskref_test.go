package commands

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTaskRefs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"single", []string{"5"}, []string{"5"}},
		{"several args", []string{"3", "1"}, []string{"3", "1"}},
		{"comma list", []string{"1,2,,4"}, []string{"1", "2", "4"}},
		{"range", []string{"7-9"}, []string{"7", "8", "9"}},
		{"range and singles", []string{"2", "1-3"}, []string{"2", "1", "3"}},
		{"opaque id", []string{"MTIzNDU2Nzg5"}, []string{"MTIzNDU2Nzg5"}},
		{"dashed opaque id", []string{"abc-def"}, []string{"abc-def"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskRefs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTaskRefs_Errors(t *testing.T) {
	if _, err := ParseTaskRefs(nil); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("no args: err = %v, want ErrTaskRefRequired", err)
	}
	if _, err := ParseTaskRefs([]string{" , "}); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("blank args: err = %v, want ErrTaskRefRequired", err)
	}
	for _, arg := range []string{"5-2", "0-3", "1-500"} {
		if _, err := ParseTaskRefs([]string{arg}); err == nil {
			t.Errorf("%s: expected error", arg)
		}
	}
}
