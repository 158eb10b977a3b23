package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/hodei-project/hodei-authz/backend/internal/invalidation"
	"github.com/hodei-project/hodei-authz/backend/internal/policystore"
	"github.com/hodei-project/hodei-authz/backend/internal/service"
)

// buildDevFacade wires a Facade over an in-memory store seeded from
// *.cedar files in dir, with an fsnotify watcher reloading the store on
// every change — for local iteration without a live Postgres. This is
// explicitly separate from the durable hot-reload path: the seed
// directory is the source of truth only in dev mode.
func buildDevFacade(ctx context.Context, dir string, logger *log.Logger) (*service.Facade, error) {
	store := policystore.NewMemStore()
	bus := invalidation.NewMemBus()
	facade := service.New(store, bus, service.WithLogger(logger))

	if err := loadSeedPolicies(ctx, store, dir); err != nil {
		return nil, err
	}
	if err := facade.ReloadFromStore(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Printf("[authzd] dev-mode watcher unavailable: %v", err)
		return facade, nil
	}
	if err := watcher.Add(dir); err != nil {
		logger.Printf("[authzd] dev-mode watch of %s failed: %v", dir, err)
		return facade, nil
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := reseedFromDir(ctx, store, dir); err != nil {
					logger.Printf("[authzd] dev-mode reseed failed: %v", err)
					continue
				}
				if err := facade.ReloadFromStore(ctx); err != nil {
					logger.Printf("[authzd] dev-mode reload failed: %v", err)
					continue
				}
				logger.Printf("[authzd] dev-mode reloaded policies from %s", dir)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Printf("[authzd] dev-mode watcher error: %v", err)
			case <-ctx.Done():
				watcher.Close()
				return
			}
		}
	}()

	return facade, nil
}

func loadSeedPolicies(ctx context.Context, store *policystore.MemStore, dir string) error {
	return reseedFromDir(ctx, store, dir)
}

// reseedFromDir clears the in-memory store and reloads every *.cedar file
// in dir, so deleted/renamed files disappear from the active set too.
func reseedFromDir(ctx context.Context, store *policystore.MemStore, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range existing {
		store.Delete(ctx, d.ID)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cedar") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if _, err := store.Create(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}
