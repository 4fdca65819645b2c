package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"intranet/internal/backend/connector"
	"intranet/internal/backend/gworkspace"
	"intranet/internal/config"
	"intranet/internal/service"
)

// ErrNotConfigured marks a backend whose settings or credentials are
// missing.
var ErrNotConfigured = errors.New("backend not configured")

// NewBackend creates the backend selected by cfg.Backend.
func NewBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	switch cfg.Backend {
	case config.BackendGoogle:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("%w: %s not found in %s", ErrNotConfigured, config.OAuthClientFile, cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, fmt.Errorf("%w: not logged in (run: intranet login)", ErrNotConfigured)
		}
		return gworkspace.New(ctx, cfg, logger)
	default:
		return connector.New(ctx, connector.Options{
			BaseURL:      cfg.Connector.BaseURL,
			Dataset:      cfg.Connector.Dataset,
			TenantID:     cfg.Connector.TenantID,
			ClientID:     cfg.Connector.ClientID,
			ClientSecret: cfg.Connector.ClientSecret,
			Scopes:       cfg.Connector.Scopes,
			Timeout:      cfg.Connector.Timeout,
			Logger:       logger,
		})
	}
}
