package webparts

import (
	"encoding/json"

	"intranet/internal/service"
)

const (
	UnknownAuthor   = "Unknown Author"
	DefaultCategory = "NEWS"
)

// AuthorName returns the display name of a news item's author.
func AuthorName(n service.News) string {
	if name := lookupString(n.Author, "DisplayName", "Title", "Name"); name != "" {
		return name
	}
	return UnknownAuthor
}

// CategoryName returns the category title, falling back to the color tag.
func CategoryName(n service.News) string {
	if name := lookupString(n.Category, "Title", "Value"); name != "" {
		return name
	}
	if n.ColorTag != "" {
		return n.ColorTag
	}
	return DefaultCategory
}

// lookupString reads raw as a string, or as an object and returns the
// first non-empty string value among keys.
func lookupString(raw json.RawMessage, keys ...string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
