// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"intranet/internal/service"
	"intranet/internal/taskview"
	"intranet/internal/webparts"
)

const (
	// SectionSeparator is the separator line around section headers.
	SectionSeparator = "------------"

	dateLayout     = "2006-01-02"
	noDate         = "----------"
	assigneeWidth  = 20
	taskRowPattern = "%4s  %-6s  %-11s  %-20s  %s\n"
)

// FormatSectionHeader formats a section header.
func FormatSectionHeader(w io.Writer, title string) {
	fmt.Fprintln(w, SectionSeparator)
	fmt.Fprintln(w, normalizeTitle(title))
	fmt.Fprintln(w, SectionSeparator)
}

// FormatTaskHeader formats the column header of the task table.
func FormatTaskHeader(w io.Writer) {
	fmt.Fprintf(w, taskRowPattern, "ID", "PRIO", "STATUS", "ASSIGNEE", "TITLE")
}

// FormatTask formats a task row. Tasks past their due date get the date
// appended after the title.
// Format: "{ID:>4}  {PRIO:<6}  {STATUS:<11}  {ASSIGNEE:<20}  {TITLE}\n"
func FormatTask(w io.Writer, task service.Task, now time.Time) {
	title := normalizeTitle(task.Title)
	if task.IsOverdue(now) {
		title += " (overdue " + task.DueDate.Format(dateLayout) + ")"
	}
	status := string(task.Status)
	if status == "" {
		status = "-"
	}
	fmt.Fprintf(w, taskRowPattern,
		task.ID, taskview.PriorityLabel(task), status,
		truncate(taskview.AssigneeName(task), assigneeWidth), title)
}

// FormatNews formats a news item: date and title, then category and author
// on an indented line.
func FormatNews(w io.Writer, n service.News) {
	date := n.PublishDate
	if date == nil {
		date = n.Created
	}
	fmt.Fprintf(w, "%s  %s\n", formatDate(date), normalizeTitle(n.Title))
	fmt.Fprintf(w, "            %s, %s\n", webparts.CategoryName(n), webparts.AuthorName(n))
}

// FormatCarouselItem formats a carousel story.
func FormatCarouselItem(w io.Writer, n service.NewsHub) {
	fmt.Fprintf(w, "%6d  %s\n", n.ViewCount, normalizeTitle(n.Title))
}

// FormatEvent formats an event. Location is appended when set.
func FormatEvent(w io.Writer, e service.Event) {
	line := fmt.Sprintf("%s  %-5s  %s", formatDate(e.EventDate), e.Time, normalizeTitle(e.Title))
	if e.Location != "" {
		line += " @ " + e.Location
	}
	fmt.Fprintln(w, line)
}

// FormatHero formats the hero layout: the main tile, then each other tile
// indented.
func FormatHero(w io.Writer, layout webparts.HeroLayout) {
	if layout.Main != nil {
		fmt.Fprintln(w, normalizeTitle(layout.Main.Title))
	}
	for _, tile := range layout.Tiles {
		fmt.Fprintf(w, "    %s\n", normalizeTitle(tile.Title))
	}
}

// FormatTrending formats a trending card.
func FormatTrending(w io.Writer, c webparts.TrendingCard) {
	fmt.Fprintf(w, "%s  (%s)\n", normalizeTitle(c.Title), c.Subtitle)
}

// FormatUser formats a directory search hit.
// Format: "{NAME:<24}  {EMAIL}[  {DEPARTMENT}]\n"
func FormatUser(w io.Writer, u service.CandidateUser) {
	line := fmt.Sprintf("%-24s  %s", truncate(u.DisplayName, 24), u.Email())
	if u.Department != "" {
		line += "  " + u.Department
	}
	fmt.Fprintln(w, line)
}

func formatDate(d *service.DateTime) string {
	if d == nil || d.IsZero() {
		return noDate
	}
	return d.Format(dateLayout)
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// truncate shortens s to n runes, marking the cut with "~".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
