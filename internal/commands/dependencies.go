package commands

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/diogo/agentdeck/internal/api"
	"github.com/diogo/agentdeck/internal/chat"
	"github.com/diogo/agentdeck/internal/config"
)

// deps bundles everything a command needs to talk to the backend.
type deps struct {
	cfg    config.Config
	client *api.Client
	logger zerolog.Logger
	closer io.Closer
}

// buildDeps loads config, sets up file logging and creates the backend
// client. Flag values override config and environment.
func buildDeps() (*deps, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, closer, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	baseURL := backendFlag
	if baseURL == "" {
		baseURL = config.ResolveBackendURL(cfg)
	}

	clientOpts := []api.ClientOption{
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(time.Duration(cfg.Timeout)*time.Second))
	}

	return &deps{
		cfg:    cfg,
		client: api.NewClient(baseURL, clientOpts...),
		logger: logger,
		closer: closer,
	}, nil
}

func (d *deps) Close() {
	if d.closer != nil {
		d.closer.Close()
	}
}

// newController creates a controller on the requested session, or a fresh
// one when no session flag was given.
func (d *deps) newController(ctx context.Context) (*chat.Controller, error) {
	opts := []chat.Option{
		chat.WithLogger(d.logger.With().Str("component", "chat").Logger()),
	}
	if d.cfg.StreamIdleTimeout > 0 {
		opts = append(opts, chat.WithIdleTimeout(time.Duration(d.cfg.StreamIdleTimeout)*time.Second))
	}

	if sessionFlag != "" {
		controller := chat.NewController(d.client, sessionFlag, opts...)
		if err := controller.LoadSession(ctx, sessionFlag); err != nil {
			return nil, err
		}
		return controller, nil
	}

	id, err := d.client.NextSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewController(d.client, id, opts...), nil
}
