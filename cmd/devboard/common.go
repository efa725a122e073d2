package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/metalagman/devboard/internal/azure"
	"github.com/metalagman/devboard/internal/config"
	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/tracker"
)

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, func(), error) {
	storeDB, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, func() {}, err
	}
	return storeDB, func() { _ = storeDB.Close() }, nil
}

func azureConfig(cfg config.AzureConfig) azure.Config {
	return azure.Config{
		BaseURL:      cfg.BaseURL,
		Organization: cfg.Organization,
		Project:      cfg.Project,
		PAT:          cfg.PAT,
		PATEnv:       cfg.PATEnv,
		Timeout:      cfg.Timeout,
	}
}

// newTracker builds a tracker for the configured organization and project.
// Mutations are recorded in the events store.
func newTracker(ctx context.Context, cfg config.Config) (*tracker.Service, func(), error) {
	client, err := azure.NewClient(azureConfig(cfg.Azure))
	if err != nil {
		return nil, func() {}, fmt.Errorf("azure client: %w", err)
	}
	storeDB, closeFn, err := openDB(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return tracker.NewService(client, nil, db.NewStore(storeDB)), closeFn, nil
}
