package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"intranet/internal/service"
	"intranet/internal/testutil"
	"intranet/internal/webparts"
)

func date(s string) *service.DateTime {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &service.DateTime{Time: t}
}

func TestFormatTasks(t *testing.T) {
	raw := `[
		{"ID": 1, "Title": "Audit Q3", "Priority#Id": 1, "Status": "In Progress",
		 "AssignedTo": {"Title": "Ada Lovelace"}, "DueDate": "2024-06-01"},
		{"ID": "12", "Title": "Plan\noffsite", "Status": null,
		 "AssignedTo#Claims": "i:0#.f|membership|grace_hopper@contoso.com"},
		{"ID": 345, "Title": "  ", "Priority#Id": 3, "Status": {"Value": "Completed"},
		 "AssignedTo": [{"DisplayText": "Bartholomew Fitzgerald-Smythe"}], "DueDate": "2024-05-01"}
	]`
	var tasks []service.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	FormatTaskHeader(&buf)
	for _, task := range tasks {
		FormatTask(&buf, task, now)
	}
	testutil.Golden(t, "tasks", buf.String())
}

func TestFormatFeeds(t *testing.T) {
	var buf bytes.Buffer

	FormatSectionHeader(&buf, "News")
	FormatNews(&buf, service.News{
		Title:       "Quarterly results",
		PublishDate: date("2024-05-20"),
		Category:    json.RawMessage(`{"Title":"Finance"}`),
		Author:      json.RawMessage(`{"Title":"Ada Lovelace"}`),
	})
	FormatNews(&buf, service.News{
		Title:    "Welcome",
		Created:  date("2024-04-02"),
		ColorTag: "Get Involved",
	})

	FormatSectionHeader(&buf, "Carousel")
	FormatCarouselItem(&buf, service.NewsHub{Title: "Story", ViewCount: 120})

	FormatSectionHeader(&buf, "Events")
	FormatEvent(&buf, service.Event{Title: "Town Hall", EventDate: date("2024-06-12"), Time: "10:00", Location: "Auditorium"})
	FormatEvent(&buf, service.Event{Title: "Picnic"})

	FormatSectionHeader(&buf, "Hero")
	FormatHero(&buf, webparts.HeroLayout{
		Main:  &service.Hero{Title: "Main story"},
		Tiles: []service.Hero{{Title: "Tile A"}, {Title: "Tile B"}},
	})

	FormatSectionHeader(&buf, "Trending")
	FormatTrending(&buf, webparts.TrendingCard{Title: "Onboarding guide", Subtitle: "Trending score: 9.5"})

	FormatSectionHeader(&buf, "People")
	FormatUser(&buf, service.CandidateUser{DisplayName: "Ada Lovelace", Mail: "ada@contoso.com", Department: "Engineering"})
	FormatUser(&buf, service.CandidateUser{DisplayName: "Grace Hopper", UserPrincipalName: "grace@contoso.com"})

	testutil.Golden(t, "feeds", buf.String())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Zoë Washburne-Alleyne", 8, "Zoë Was~"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
