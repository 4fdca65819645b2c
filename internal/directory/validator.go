// Package directory confirms people picked in the UI against the
// organization directory and builds the person field value that may be
// written to a list.
package directory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"intranet/internal/listclient"
	"intranet/internal/querycache"
	"intranet/internal/result"
	"intranet/internal/service"
)

const (
	// ClaimsPrefix prefixes the person key of a tenant member.
	ClaimsPrefix = "i:0#.f|membership|"

	// UserKeyPrefix prefixes the user key inside the entity data.
	UserKeyPrefix = "i:0h.f|membership|"

	// MinSearchLength is the shortest picker query that hits the directory.
	MinSearchLength = 2

	unknownUser = "Unknown User"
	provider    = "Tenant"
)

// Outcome is the result of resolving an assignee selection.
//
// Validated with a nil Person means the assignment is being cleared.
type Outcome struct {
	Validated bool
	Person    *service.PersonReference
	Field     service.PersonField
	Reason    string
}

// Validator resolves picker selections to directory identities.
type Validator struct {
	users  *listclient.Users
	cache  *querycache.Cache
	logger *zap.Logger
}

// NewValidator creates a Validator. cache may be nil, in which case picker
// searches are not cached.
func NewValidator(users *listclient.Users, cache *querycache.Cache, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{users: users, cache: cache, logger: logger}
}

// SelectPrimaryAssignee returns the candidate that gets persisted. Tasks
// hold a single assignee, so only the first selected candidate counts.
func SelectPrimaryAssignee(candidates []service.CandidateUser) (service.CandidateUser, bool) {
	if len(candidates) == 0 {
		return service.CandidateUser{}, false
	}
	return candidates[0], true
}

// ResolveAssignee confirms the primary candidate in the directory.
//
// An empty selection is valid and clears the assignment. Otherwise the
// candidate's mail (or principal name) is searched with an exact match;
// the hit whose mail or principal name equals it wins, else the first hit.
// Any failure yields Validated == false and a Reason; callers must not
// write an assignment in that case.
func (v *Validator) ResolveAssignee(ctx context.Context, candidates []service.CandidateUser) Outcome {
	candidate, ok := SelectPrimaryAssignee(candidates)
	if !ok {
		return Outcome{Validated: true}
	}

	email := candidate.Email()
	if email == "" {
		v.logger.Warn("selected user has no email address", zap.String("id", candidate.ID))
		return Outcome{Reason: "selected user has no email address"}
	}

	raw, err := v.users.Search(ctx, email, listclient.DefaultSearchTop, true)
	if err != nil {
		v.logger.Warn("directory search failed", zap.String("email", email), zap.Error(err))
		return Outcome{Reason: "directory search failed: " + err.Error()}
	}
	page := result.Normalize[service.UserPage](raw)
	if !page.IsSuccess {
		v.logger.Warn("directory search failed", zap.String("email", email), zap.String("error", page.Error))
		return Outcome{Reason: "directory search failed: " + page.Error}
	}

	match, ok := bestMatch(page.Result.Value, email)
	if !ok {
		v.logger.Warn("selected user could not be validated", zap.String("email", email))
		return Outcome{Reason: "user not found in directory: " + email}
	}

	ref := Reference(match)
	return Outcome{
		Validated: true,
		Person:    &ref,
		Field:     BuildPersonField(match),
	}
}

// Search runs a picker query. Queries shorter than MinSearchLength return
// nothing without a directory call; failures return an empty list.
func (v *Validator) Search(ctx context.Context, query string) ([]service.CandidateUser, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil, nil
	}
	fetch := func(ctx context.Context) ([]service.CandidateUser, error) {
		raw, err := v.users.Search(ctx, query, listclient.DefaultSearchTop, true)
		if err != nil {
			return nil, err
		}
		page := result.Normalize[service.UserPage](raw)
		if err := page.Err(); err != nil {
			return nil, err
		}
		return page.Result.Value, nil
	}
	if v.cache == nil {
		return fetch(ctx)
	}
	st := querycache.Query(ctx, v.cache, querycache.Key{querycache.NamespaceSearchUsers, query}, fetch)
	return st.Data, st.Err
}

// bestMatch prefers an exact case-insensitive match on mail or principal
// name and falls back to the first hit.
func bestMatch(users []service.CandidateUser, email string) (service.CandidateUser, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Mail, email) || strings.EqualFold(u.UserPrincipalName, email) {
			return u, true
		}
	}
	if len(users) > 0 {
		return users[0], true
	}
	return service.CandidateUser{}, false
}

// Reference builds the confirmed identity of a directory hit.
func Reference(u service.CandidateUser) service.PersonReference {
	return service.PersonReference{
		Key:         ClaimsPrefix + u.Email(),
		UserKey:     UserKeyPrefix + u.UserPrincipalName,
		DisplayName: displayName(u),
		Email:       u.Email(),
		ObjectID:    u.ID,
		Department:  u.Department,
	}
}

// BuildPersonField builds the persisted person column value for a
// directory hit.
func BuildPersonField(u service.CandidateUser) service.PersonField {
	ref := Reference(u)
	var department *string
	if ref.Department != "" {
		department = &ref.Department
	}
	return service.PersonField{{
		Key:         ref.Key,
		DisplayText: ref.DisplayName,
		IsResolved:  true,
		Description: ref.Email,
		EntityType:  "User",
		EntityData: service.PersonEntityData{
			UserKey:    ref.UserKey,
			Email:      ref.Email,
			ObjectID:   ref.ObjectID,
			Department: department,
		},
		MultipleMatches:     []any{},
		ProviderName:        provider,
		ProviderDisplayName: provider,
	}}
}

func displayName(u service.CandidateUser) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return unknownUser
}
