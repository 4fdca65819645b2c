// Package listclient provides one client per backend list. Clients issue
// the read and write calls and hand back raw responses; normalization and
// caching happen in the layers above.
package listclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"intranet/internal/service"
)

// ErrIDAssigned is returned when a create payload carries an id.
var ErrIDAssigned = errors.New("item id is assigned by the backend")

// Client reads and writes the items of one list. It never retries.
type Client struct {
	transport service.Transport
	table     string
	logger    *zap.Logger
}

// New creates a client bound to table.
func New(transport service.Transport, table string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport: transport,
		table:     table,
		logger:    logger.With(zap.String("table", table)),
	}
}

// NewTasks returns a client for the task list.
func NewTasks(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableTasks, logger)
}

// NewNews returns a client for the news list.
func NewNews(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableNews, logger)
}

// NewNewsHub returns a client for the news hub carousel list.
func NewNewsHub(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableNewsHub, logger)
}

// NewEvents returns a client for the events list.
func NewEvents(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableEvents, logger)
}

// NewHero returns a client for the hero tiles list.
func NewHero(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableHero, logger)
}

// NewTrending returns a client for the trending content list.
func NewTrending(t service.Transport, logger *zap.Logger) *Client {
	return New(t, service.TableTrending, logger)
}

// Table returns the list name.
func (c *Client) Table() string { return c.table }

// GetAll reads items. A nil opts reads with backend defaults.
func (c *Client) GetAll(ctx context.Context, opts *service.ListQueryOptions) (json.RawMessage, error) {
	var o service.ListQueryOptions
	if opts != nil {
		o = *opts
	}
	start := time.Now()
	raw, err := c.transport.Read(ctx, c.table, o)
	c.trace("read", start, err,
		zap.String("filter", o.Filter),
		zap.Strings("orderBy", o.OrderBy),
		zap.Int("top", o.Top))
	return raw, err
}

// Create inserts an item built from fields. fields must not carry an id.
func (c *Client) Create(ctx context.Context, fields service.Fields) (json.RawMessage, error) {
	for k := range fields {
		if strings.EqualFold(k, "ID") {
			return nil, ErrIDAssigned
		}
	}
	start := time.Now()
	raw, err := c.transport.Create(ctx, c.table, fields)
	c.trace("create", start, err, zap.Strings("fields", fieldNames(fields)))
	return raw, err
}

// Update patches the item with the given id.
func (c *Client) Update(ctx context.Context, id string, fields service.Fields) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("update %s: item id required", c.table)
	}
	start := time.Now()
	raw, err := c.transport.Update(ctx, c.table, id, fields)
	c.trace("update", start, err, zap.String("id", id), zap.Strings("fields", fieldNames(fields)))
	return raw, err
}

// Delete removes the item with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: item id required", c.table)
	}
	start := time.Now()
	err := c.transport.Delete(ctx, c.table, id)
	c.trace("delete", start, err, zap.String("id", id))
	return err
}

func (c *Client) trace(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		c.logger.Debug("list call failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("list call", fields...)
}

func fieldNames(f service.Fields) []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	return names
}
