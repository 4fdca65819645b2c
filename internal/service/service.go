// Package service defines the backend-agnostic contracts and entity types
// for list and directory operations.
package service

import (
	"context"
	"encoding/json"
)

// Table names as exposed by the list backend.
const (
	TableTasks    = "Tasks"
	TableNews     = "News"
	TableNewsHub  = "NewsHub"
	TableEvents   = "Events"
	TableHero     = "Hero"
	TableTrending = "Trending"
)

// Fields is a partial entity keyed by backend field name. A nil value
// clears the field.
type Fields map[string]any

// Transport defines the list/table operations of a backend.
// All list access goes through this interface; nothing above the backend
// packages imports a backend SDK directly.
//
// Read, Create and Update return the raw response body. Callers hand it to
// the result package; no other code may assume its shape.
type Transport interface {
	// Read returns items of table filtered, ordered and capped by opts.
	Read(ctx context.Context, table string, opts ListQueryOptions) (json.RawMessage, error)

	// Create inserts an item. The backend assigns its id.
	Create(ctx context.Context, table string, fields Fields) (json.RawMessage, error)

	// Update patches the item with the given id.
	Update(ctx context.Context, table, id string, fields Fields) (json.RawMessage, error)

	// Delete removes the item with the given id.
	// Failures are returned as errors; there is no payload to normalize.
	Delete(ctx context.Context, table, id string) error
}

// Directory defines the people search operation of a backend.
type Directory interface {
	// SearchUsers searches the organization directory. top caps the result
	// count; exact requests matching on the full search term. The raw
	// response wraps a {"value": [...]} page of CandidateUser.
	SearchUsers(ctx context.Context, query string, top int, exact bool) (json.RawMessage, error)
}

// Backend is a complete backend: lists plus directory.
type Backend interface {
	Transport
	Directory
}
