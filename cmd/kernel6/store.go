package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/kernel6/internal/config"
	"github.com/user/kernel6/internal/gist"
	"github.com/user/kernel6/internal/state"
)

// storeAccess says how a command loads the record store.
type storeAccess int

const (
	// accessServe logs a failed load and keeps going with an empty
	// local-only store.
	accessServe storeAccess = iota
	// accessRead fails on a load error and never creates the document.
	accessRead
	// accessWrite fails on a load error.
	accessWrite
)

// openStore builds the record store for the configured backend and loads
// it according to access.
func openStore(ctx context.Context, cfg *config.Config, access storeAccess) (*state.RecordStore, error) {
	var store *state.RecordStore
	switch cfg.StoreMode() {
	case config.BackendGist:
		if cfg.Gist.Token == "" || cfg.Gist.ID == "" {
			return nil, fmt.Errorf("gist backend requires gist.token and gist.id")
		}
		client := gist.NewClient(cfg.Gist.Token, cfg.Gist.ID).WithBaseURL(cfg.Gist.BaseURL)
		store = state.NewRecordStore(client, cfg.Gist.Filename)
	case config.BackendFile:
		store = state.NewRecordStore(state.NewFileStore(cfg.DataDir), cfg.Gist.Filename)
	default:
		slog.Warn("record store is local only, reports will not survive a restart")
		store = state.NewLocalRecordStore()
	}

	load := store.Load
	if access == accessRead {
		load = store.LoadExisting
	}
	if err := load(ctx); err != nil {
		if access != accessServe {
			return nil, err
		}
		slog.Error("failed to load reports, starting empty and local only", "error", err)
	}
	slog.Info("record store ready", "backend", cfg.StoreMode(), "mode", store.Mode(), "reports", store.Len())
	return store, nil
}
