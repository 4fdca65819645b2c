package listclient

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"intranet/internal/service"
)

// DefaultSearchTop is the result cap used by people searches.
const DefaultSearchTop = 10

// Users searches the organization directory.
type Users struct {
	directory service.Directory
	logger    *zap.Logger
}

// NewUsers creates a directory client.
func NewUsers(d service.Directory, logger *zap.Logger) *Users {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Users{directory: d, logger: logger}
}

// Search returns the raw search response.
func (u *Users) Search(ctx context.Context, query string, top int, exact bool) (json.RawMessage, error) {
	if top <= 0 {
		top = DefaultSearchTop
	}
	start := time.Now()
	raw, err := u.directory.SearchUsers(ctx, query, top, exact)
	u.logger.Debug("directory search",
		zap.String("query", query),
		zap.Int("top", top),
		zap.Bool("exact", exact),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return raw, err
}
