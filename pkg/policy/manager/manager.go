package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arbiter-hq/arbiter/pkg/policy/engine"
)

// Manager keeps a policy engine in sync with a directory of policy
// files. LoadAll performs the initial load; Start watches the
// directory and resynchronizes the engine after every change,
// including unloading policies whose files were removed.
type Manager struct {
	dir     string
	loader  *Loader
	engine  *engine.Engine
	logger  *slog.Logger
	watcher *FileWatcher

	// loaded tracks policy ids owned by this manager, so a resync can
	// unload policies whose files disappeared without touching
	// policies loaded through other paths.
	mu     sync.Mutex
	loaded map[string]struct{}
}

// New creates a manager for the given policy directory.
func New(dir string, eng *engine.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:    dir,
		loader: NewLoader(nil),
		engine: eng,
		logger: logger,
		loaded: make(map[string]struct{}),
	}
}

// LoadAll loads every policy file in the directory into the engine.
// Files that fail to load or parse are reported but do not prevent
// the rest from loading.
func (m *Manager) LoadAll() error {
	return m.resync()
}

// resync reconciles the engine with the directory contents: loads
// every readable policy file and unloads previously managed policies
// whose files are gone.
func (m *Manager) resync() error {
	policies, loadErr := m.loader.LoadFromDirectory(m.dir)

	errList := &ErrorList{}
	errList.Add(loadErr)

	current := make(map[string]struct{}, len(policies))
	for _, p := range policies {
		if err := m.engine.LoadPolicy(p); err != nil {
			errList.Add(fmt.Errorf("loading policy %s: %w", p.ID, err))
			continue
		}
		current[p.ID] = struct{}{}
	}

	m.mu.Lock()
	var stale []string
	for id := range m.loaded {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	m.loaded = current
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.engine.UnloadPolicy(id); err != nil {
			errList.Add(fmt.Errorf("unloading policy %s: %w", id, err))
		}
	}

	m.logger.Info("policy directory synchronized",
		"dir", m.dir,
		"loaded", len(current),
		"unloaded", len(stale),
		"errors", len(errList.Errors),
	)

	return errList.ToError()
}

// Start begins watching the policy directory and blocks until the
// context is cancelled or Stop is called. Call LoadAll first for the
// initial state.
func (m *Manager) Start(ctx context.Context) error {
	cfg := DefaultFileWatcherConfig()
	cfg.Path = m.dir

	watcher, err := NewFileWatcher(cfg, m.logger)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	return watcher.Watch(ctx, m.resync)
}

// Stop stops the directory watcher, if running.
func (m *Manager) Stop() error {
	m.mu.Lock()
	watcher := m.watcher
	m.mu.Unlock()
	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

// PolicyIDs returns the identifiers of policies currently managed by
// this manager.
func (m *Manager) PolicyIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	return ids
}
