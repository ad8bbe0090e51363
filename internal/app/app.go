// Package app wires configuration, logging and backend clients together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/azyu/chapterstudio/internal/backend"
	"github.com/azyu/chapterstudio/internal/catalog"
	"github.com/azyu/chapterstudio/internal/recordstore"
	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/pkg/types"
	"go.uber.org/zap"
)

// App holds everything a command needs to talk to the backend.
type App struct {
	Config   *ConfigManager
	Settings *types.GlobalConfig
	Logger   *zap.Logger

	Backend    *backend.Client
	Session    *session.Session
	Catalog    *catalog.Catalog
	Characters *recordstore.Store[types.Character]
	Timeline   *recordstore.Store[types.TimelineEvent]
	Glossary   *recordstore.Store[types.GlossaryTerm]
}

// New loads the configuration and builds the clients. A nil logger
// discards all output.
func New(cm *ConfigManager, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := backend.NewClient(settings.Backend.BaseURL,
		backend.WithTimeout(settings.Backend.Timeout),
		backend.WithLogger(logger.Named("backend")))

	return &App{
		Config:     cm,
		Settings:   settings,
		Logger:     logger,
		Backend:    client,
		Session:    session.New(),
		Catalog:    catalog.New(client),
		Characters: recordstore.New(client.Characters()),
		Timeline:   recordstore.New(client.Timeline()),
		Glossary:   recordstore.New(client.Glossary()),
	}, nil
}

// Refresh reloads the catalog and every collection. Each failure keeps that
// part's prior data; all failures are joined.
func (a *App) Refresh(ctx context.Context) error {
	var errs []error
	if _, err := a.Catalog.ListAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("chapters: %w", err))
	}
	if err := a.Characters.Refresh(ctx); err != nil {
		errs = append(errs, fmt.Errorf("characters: %w", err))
	}
	if err := a.Timeline.Refresh(ctx); err != nil {
		errs = append(errs, fmt.Errorf("timeline: %w", err))
	}
	if err := a.Glossary.Refresh(ctx); err != nil {
		errs = append(errs, fmt.Errorf("glossary: %w", err))
	}
	return errors.Join(errs...)
}

// Close flushes the logger.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return nil
}
