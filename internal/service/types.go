package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemID is a backend-assigned item id. Backends send it as a number or a
// string; it is always handled as a string on this side.
type ItemID string

func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid item id %s", b)
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) String() string { return string(id) }

// Choice is a choice column value. Backends send either the plain value or
// an object carrying it in Value or Title.
type Choice string

func (c *Choice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = Choice(s)
		return nil
	}
	var obj struct {
		Value string `json:"Value"`
		Title string `json:"Title"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("invalid choice value %s", b)
	}
	if obj.Value != "" {
		*c = Choice(obj.Value)
	} else {
		*c = Choice(obj.Title)
	}
	return nil
}

// DateTime accepts RFC 3339 timestamps and plain dates.
type DateTime struct {
	time.Time
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
			d.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("invalid date %s", b)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// PriorityFromID maps the backend choice id (1, 2, 3) to a Priority.
func PriorityFromID(id int) (Priority, bool) {
	switch id {
	case 1:
		return PriorityHigh, true
	case 2:
		return PriorityMedium, true
	case 3:
		return PriorityLow, true
	}
	return "", false
}

// ID returns the backend choice id, or 0 for an unknown priority.
func (p Priority) ID() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 0
}

// ParsePriority parses a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("invalid priority: %s", s)
}

// Status of a task.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus parses a status name case-insensitively, ignoring spaces.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "notstarted":
		return StatusNotStarted, nil
	case "inprogress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// Task is an item of the Tasks list.
type Task struct {
	ID               ItemID          `json:"ID"`
	Title            string          `json:"Title"`
	Description      string          `json:"Description,omitempty"`
	Priority         Choice          `json:"Priority,omitempty"`
	PriorityID       int             `json:"Priority#Id,omitempty"`
	Status           Choice          `json:"Status,omitempty"`
	ColorTag         string          `json:"OData__ColorTag,omitempty"`
	AssignedTo       json.RawMessage `json:"AssignedTo,omitempty"`
	AssignedToClaims string          `json:"AssignedTo#Claims,omitempty"`
	DueDate          *DateTime       `json:"DueDate,omitempty"`
}

// EffectivePriority prefers the backend choice id over the choice text.
func (t Task) EffectivePriority() (Priority, bool) {
	if p, ok := PriorityFromID(t.PriorityID); ok {
		return p, true
	}
	if p, err := ParsePriority(string(t.Priority)); err == nil {
		return p, true
	}
	return "", false
}

// IsCompleted reports whether the task is done. The list marks completion
// through its color tag column; the status column is honored as well.
func (t Task) IsCompleted() bool {
	return t.ColorTag == string(StatusCompleted) || Status(t.Status) == StatusCompleted
}

// IsOverdue reports whether the task has a due date before now and is
// not completed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && !t.DueDate.IsZero() && t.DueDate.Before(now) && !t.IsCompleted()
}

// News is an item of the News list.
type News struct {
	ID           ItemID          `json:"ID"`
	Title        string          `json:"Title"`
	Summary      string          `json:"Summary,omitempty"`
	ImageURL     string          `json:"ImageUrl,omitempty"`
	Category     json.RawMessage `json:"Category,omitempty"`
	ColorTag     string          `json:"OData__ColorTag,omitempty"`
	Author       json.RawMessage `json:"Author,omitempty"`
	AuthorClaims string          `json:"Author#Claims,omitempty"`
	Created      *DateTime       `json:"Created,omitempty"`
	PublishDate  *DateTime       `json:"PublishDate,omitempty"`
	Link         string          `json:"Link,omitempty"`
}

// NewsHub is an item of the NewsHub list that feeds the carousel.
type NewsHub struct {
	ID        ItemID    `json:"ID"`
	Title     string    `json:"Title"`
	Summary   string    `json:"Summary,omitempty"`
	ImageURL  string    `json:"ImageUrl,omitempty"`
	ViewCount int       `json:"ViewCount,omitempty"`
	Link      string    `json:"Link,omitempty"`
	Created   *DateTime `json:"Created,omitempty"`
}

// Event is an item of the Events list.
type Event struct {
	ID        ItemID    `json:"ID"`
	Title     string    `json:"Title"`
	Category  string    `json:"Category,omitempty"`
	EventDate *DateTime `json:"EventDate,omitempty"`
	Weekday   string    `json:"Weekday,omitempty"`
	Time      string    `json:"Time,omitempty"`
	Location  string    `json:"Location,omitempty"`
	ImageURL  string    `json:"ImageUrl,omitempty"`
}

// Hero is an item of the Hero list.
type Hero struct {
	ID       ItemID    `json:"ID"`
	Title    string    `json:"Title"`
	Subtitle string    `json:"Subtitle,omitempty"`
	ImageURL string    `json:"ImageUrl,omitempty"`
	TileType string    `json:"TileType,omitempty"`
	Link     string    `json:"Link,omitempty"`
	Created  *DateTime `json:"Created,omitempty"`
}

// Trending is an item of the Trending list.
type Trending struct {
	ID            ItemID  `json:"ID"`
	Title         string  `json:"Title"`
	TrendingScore float64 `json:"TrendingScore,omitempty"`
	ImageURL      string  `json:"ImageUrl,omitempty"`
}

// CandidateUser is a raw directory search hit. It must never be written
// to a list; see PersonReference.
type CandidateUser struct {
	ID                string `json:"Id"`
	DisplayName       string `json:"DisplayName,omitempty"`
	Mail              string `json:"Mail,omitempty"`
	UserPrincipalName string `json:"UserPrincipalName,omitempty"`
	Department        string `json:"Department,omitempty"`
}

// Email returns the mail address, falling back to the principal name.
func (u CandidateUser) Email() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}

// UserPage is the result payload of a directory search.
type UserPage struct {
	Value []CandidateUser `json:"value"`
}

// PersonReference is a directory identity confirmed by a search.
type PersonReference struct {
	Key         string `json:"key"`
	UserKey     string `json:"userKey"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	ObjectID    string `json:"objectId"`
	Department  string `json:"department,omitempty"`
}

// PersonField is the persisted person column value: an array holding one
// entry. Field order is part of the backend contract.
type PersonField []PersonFieldEntry

// PersonFieldEntry is one resolved person in a PersonField.
type PersonFieldEntry struct {
	Key                 string           `json:"Key"`
	DisplayText         string           `json:"DisplayText"`
	IsResolved          bool             `json:"IsResolved"`
	Description         string           `json:"Description"`
	EntityType          string           `json:"EntityType"`
	EntityData          PersonEntityData `json:"EntityData"`
	MultipleMatches     []any            `json:"MultipleMatches"`
	ProviderName        string           `json:"ProviderName"`
	ProviderDisplayName string           `json:"ProviderDisplayName"`
}

// PersonEntityData carries the resolved identity inside a PersonFieldEntry.
type PersonEntityData struct {
	IsAltSecIDPresent bool    `json:"IsAltSecIdPresent"`
	UserKey           string  `json:"UserKey"`
	Title             *string `json:"Title"`
	Email             string  `json:"Email"`
	MobilePhone       *string `json:"MobilePhone"`
	ObjectID          string  `json:"ObjectId"`
	Department        *string `json:"Department"`
}

// ListQueryOptions are passed through to the backend untouched.
type ListQueryOptions struct {
	// Filter is a backend query-language expression.
	Filter string `json:"filter,omitempty"`

	// OrderBy holds "field asc|desc" clauses, primary key first.
	OrderBy []string `json:"orderBy,omitempty"`

	// Top caps the result count; 0 means no cap.
	Top int `json:"top,omitempty"`
}

// OrderClause is a parsed OrderBy entry.
type OrderClause struct {
	Field string
	Desc  bool
}

// ParseOrderClause parses "field", "field asc" or "field desc".
func ParseOrderClause(s string) (OrderClause, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return OrderClause{Field: parts[0]}, nil
	case 2:
		switch strings.ToLower(parts[1]) {
		case "asc":
			return OrderClause{Field: parts[0]}, nil
		case "desc":
			return OrderClause{Field: parts[0], Desc: true}, nil
		}
	}
	return OrderClause{}, fmt.Errorf("invalid order clause: %q", s)
}

// ODataString quotes s as an OData string literal.
func ODataString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ODataEq builds a "field eq 'value'" filter expression.
func ODataEq(field, value string) string {
	return field + " eq " + ODataString(value)
}

// FormatTop renders a Top value for query strings; 0 renders empty.
func FormatTop(top int) string {
	if top <= 0 {
		return ""
	}
	return strconv.Itoa(top)
}
