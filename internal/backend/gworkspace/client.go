// Package gworkspace implements service.Backend on Google Workspace: the
// Tasks list is a Google Tasks list and people searches go to the Admin
// SDK directory. Other lists are not available on this backend.
package gworkspace

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"intranet/internal/config"
	"intranet/internal/result"
	"intranet/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// DefaultCustomer selects the signed-in user's own organization.
	DefaultCustomer = "my_customer"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Scopes are the OAuth scopes requested at login.
var Scopes = []string{tasksScope, admin.AdminDirectoryUserReadonlyScope}

// sortable maps the columns that can be ordered on to their item keys.
var sortable = map[string]bool{"ID": true, "Title": true, "DueDate": true, "Modified": true, "Status": true}

// Options selects the list and directory a Client works on.
type Options struct {
	TaskList string
	Customer string
	Logger   *zap.Logger
}

// Client implements service.Backend using Google Tasks and the Admin SDK.
type Client struct {
	tasks    *tasks.Service
	users    *admin.Service
	listID   string
	customer string
	logger   *zap.Logger
}

// OAuthConfig loads oauth_client.json from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// LoadToken reads token.json from the config directory.
func LoadToken(cfg *config.Config) (*oauth2.Token, error) {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// New creates a client from the stored OAuth client and token.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	return NewWithHTTPClient(ctx, httpClient, Options{
		TaskList: cfg.Google.TaskList,
		Customer: cfg.Google.Customer,
		Logger:   logger,
	})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts Options, extra ...option.ClientOption) (*Client, error) {
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)
	tsvc, err := tasks.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	usvc, err := admin.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory service: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		tasks:    tsvc,
		users:    usvc,
		listID:   cmp.Or(opts.TaskList, DefaultListID),
		customer: cmp.Or(opts.Customer, DefaultCustomer),
		logger:   logger.With(zap.String("backend", "google")),
	}, nil
}

// Read implements service.Transport. OrderBy is applied locally; filters
// are not supported.
func (c *Client) Read(ctx context.Context, table string, opts service.ListQueryOptions) (json.RawMessage, error) {
	if msg := c.checkTable(table); msg != "" {
		return failure(msg), nil
	}
	if opts.Filter != "" {
		return failure("filters are not supported by the google backend"), nil
	}
	clauses := make([]service.OrderClause, 0, len(opts.OrderBy))
	for _, s := range opts.OrderBy {
		clause, err := service.ParseOrderClause(s)
		if err != nil {
			return failure(err.Error()), nil
		}
		if !sortable[clause.Field] {
			return failure("cannot order by " + clause.Field), nil
		}
		clauses = append(clauses, clause)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var items []map[string]any
	err := c.tasks.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				items = append(items, toItem(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}

	slices.SortStableFunc(items, func(a, b map[string]any) int {
		for _, cl := range clauses {
			r := strings.Compare(fmt.Sprint(a[cl.Field]), fmt.Sprint(b[cl.Field]))
			if cl.Desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	})
	if opts.Top > 0 && len(items) > opts.Top {
		items = items[:opts.Top]
	}
	if items == nil {
		items = []map[string]any{}
	}
	return success(items)
}

// Create implements service.Transport.
func (c *Client) Create(ctx context.Context, table string, fields service.Fields) (json.RawMessage, error) {
	if msg := c.checkTable(table); msg != "" {
		return failure(msg), nil
	}
	t, msg := fromFields(fields)
	if msg != "" {
		return failure(msg), nil
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.tasks.Tasks.Insert(c.listID, t).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return success(toItem(created))
}

// Update implements service.Transport.
func (c *Client) Update(ctx context.Context, table, id string, fields service.Fields) (json.RawMessage, error) {
	if msg := c.checkTable(table); msg != "" {
		return failure(msg), nil
	}
	t, msg := fromFields(fields)
	if msg != "" {
		return failure(msg), nil
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	updated, err := c.tasks.Tasks.Patch(c.listID, id, t).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return success(toItem(updated))
}

// Delete implements service.Transport.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	if msg := c.checkTable(table); msg != "" {
		return fmt.Errorf("%w: %s", result.ErrOperationFailed, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.tasks.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// SearchUsers implements service.Directory. An exact search for an address
// matches the primary email; any other query matches names and addresses
// by prefix.
func (c *Client) SearchUsers(ctx context.Context, query string, top int, exact bool) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	q := query
	if exact && isAddress(query) {
		q = "email:'" + strings.ReplaceAll(query, "'", `\'`) + "'"
	}
	call := c.users.Users.List().
		Customer(c.customer).
		ViewType("domain_public").
		Query(q).
		Context(ctx)
	if top > 0 {
		call = call.MaxResults(int64(top))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, wrapError(err)
	}

	page := service.UserPage{Value: make([]service.CandidateUser, 0, len(resp.Users))}
	for _, u := range resp.Users {
		page.Value = append(page.Value, toCandidate(u))
	}
	return success(page)
}

func isAddress(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func (c *Client) checkTable(table string) string {
	if table != service.TableTasks {
		return "list " + table + " is not available on the google backend"
	}
	return ""
}

func toItem(t *tasks.Task) map[string]any {
	item := map[string]any{
		"ID":          t.Id,
		"Title":       t.Title,
		"Description": t.Notes,
		"Status":      string(service.StatusNotStarted),
		"Modified":    t.Updated,
	}
	if t.Status == statusCompleted {
		item["Status"] = string(service.StatusCompleted)
		item["OData__ColorTag"] = string(service.StatusCompleted)
	}
	if t.Due != "" {
		item["DueDate"] = t.Due
	}
	return item
}

// fromFields maps list fields onto a Google task. The second return value
// is a failure message for fields the backend cannot store.
func fromFields(fields service.Fields) (*tasks.Task, string) {
	t := &tasks.Task{}
	for k, v := range fields {
		switch k {
		case "Title":
			s, ok := v.(string)
			if !ok {
				return nil, "Title must be a string"
			}
			t.Title = s
			t.ForceSendFields = append(t.ForceSendFields, "Title")
		case "Description":
			s, _ := v.(string)
			t.Notes = s
			t.ForceSendFields = append(t.ForceSendFields, "Notes")
		case "Status":
			s, _ := v.(string)
			st, err := service.ParseStatus(s)
			if err != nil {
				return nil, err.Error()
			}
			t.Status = statusNeedsAction
			if st == service.StatusCompleted {
				t.Status = statusCompleted
			}
		case "DueDate":
			s, _ := v.(string)
			if s == "" {
				t.NullFields = append(t.NullFields, "Due")
				continue
			}
			d, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, "invalid DueDate: " + s
			}
			t.Due = d.UTC().Format(time.RFC3339)
		case "AssignedTo":
			if v != nil {
				return nil, "assignments are not supported by the google backend"
			}
		default:
			return nil, "field " + k + " is not supported by the google backend"
		}
	}
	return t, ""
}

func toCandidate(u *admin.User) service.CandidateUser {
	c := service.CandidateUser{
		ID:                u.Id,
		Mail:              u.PrimaryEmail,
		UserPrincipalName: u.PrimaryEmail,
	}
	if u.Name != nil {
		c.DisplayName = u.Name.FullName
	}
	// Organizations is untyped in the API; decode the department only.
	if raw, err := json.Marshal(u.Organizations); err == nil {
		var orgs []struct {
			Department string `json:"department"`
			Primary    bool   `json:"primary"`
		}
		if json.Unmarshal(raw, &orgs) == nil {
			for i, o := range orgs {
				if o.Primary || i == 0 {
					c.Department = o.Department
				}
			}
		}
	}
	return c
}

func success(v any) (json.RawMessage, error) {
	return json.Marshal(result.Success(v))
}

func failure(msg string) json.RawMessage {
	raw, _ := json.Marshal(result.Failure[any](msg))
	return raw
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: intranet login)")
	}
	if strings.Contains(errStr, "404") {
		return fmt.Errorf("not found")
	}
	return err
}
