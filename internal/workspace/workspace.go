package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mp4-creator/internal/filesystem"
	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// DefaultPrefix is the directory-name prefix identifying workspaces.
const DefaultPrefix = "mp4-creator-"

// DefaultCleanupGrace is how long a finished workspace stays in the tracking
// map before it is forgotten.
const DefaultCleanupGrace = 30 * time.Second

const lockFileName = ".lock"

// ErrCreate is returned when a workspace directory cannot be allocated.
var ErrCreate = errors.New("workspace creation failed")

// State is the cleanup state of a workspace.
type State int

const (
	// StatePending means the workspace exists and nobody has started removing it.
	StatePending State = iota
	// StateCleaning means removal is in progress.
	StateCleaning
	// StateDone means removal has finished (successfully or not).
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCleaning:
		return "cleaning"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Workspace is a directory exclusively owned by one merge request.
type Workspace struct {
	ID   string
	Path string

	lock *flock.Flock
}

// File returns the absolute path of name inside the workspace.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.Path, name)
}

// Config controls where workspaces live and how long finished ones are tracked.
type Config struct {
	Root         string
	Prefix       string
	CleanupGrace time.Duration
}

// Manager creates, tracks and removes workspaces. It is safe for concurrent use.
type Manager struct {
	root   string
	prefix string
	grace  time.Duration

	mu     sync.Mutex
	states map[string]State
	open   map[string]*Workspace

	// removeAll retries transient errors outside of tests.
	removeAll func(path string) error
}

// NewManager returns a Manager rooted at cfg.Root (os.TempDir() when empty).
func NewManager(cfg Config) *Manager {
	root := cfg.Root
	if root == "" {
		root = os.TempDir()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	grace := cfg.CleanupGrace
	if grace <= 0 {
		grace = DefaultCleanupGrace
	}

	return &Manager{
		root:      root,
		prefix:    prefix,
		grace:     grace,
		states:    make(map[string]State),
		open:      make(map[string]*Workspace),
		removeAll: removeAll,
	}
}

func removeAll(path string) error {
	return filesystem.RemoveAllWithRetry(path, filesystem.DefaultRetryConfig())
}

// Root returns the directory under which workspaces are created.
func (m *Manager) Root() string {
	return m.root
}

// Prefix returns the workspace directory-name prefix.
func (m *Manager) Prefix() string {
	return m.prefix
}

// Create allocates a new uniquely named workspace directory and holds an
// advisory lock on it for as long as it is alive.
func (m *Manager) Create() (*Workspace, error) {
	id := uuid.NewString()
	path := filepath.Join(m.root, m.prefix+id)

	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	lock := flock.New(filepath.Join(path, lockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		if rmErr := m.removeAll(path); rmErr != nil {
			logging.Warn("failed to remove half-created workspace %s: %v", path, rmErr)
		}
		if err == nil {
			err = errors.New("lock already held")
		}
		return nil, fmt.Errorf("%w: lock %s: %v", ErrCreate, path, err)
	}

	ws := &Workspace{ID: id, Path: path, lock: lock}

	m.mu.Lock()
	m.states[id] = StatePending
	m.open[id] = ws
	m.mu.Unlock()

	metrics.WorkspacesCreatedTotal.Inc()
	metrics.WorkspacesActive.Inc()
	logging.Debug("Created workspace %s", path)

	return ws, nil
}

// Cleanup removes the workspace directory and everything in it. It may be
// called any number of times from any goroutine; only the first call for a
// tracked workspace performs the removal and returns true.
func (m *Manager) Cleanup(ws *Workspace) bool {
	if ws == nil {
		return false
	}

	m.mu.Lock()
	state, tracked := m.states[ws.ID]
	if !tracked || state != StatePending {
		m.mu.Unlock()
		metrics.WorkspaceCleanupsTotal.WithLabelValues("duplicate").Inc()
		logging.Debug("Skipping duplicate cleanup of workspace %s (%v)", ws.ID, state)
		return false
	}
	m.states[ws.ID] = StateCleaning
	delete(m.open, ws.ID)
	m.mu.Unlock()

	if ws.lock != nil {
		if err := ws.lock.Unlock(); err != nil {
			logging.Warn("failed to release workspace lock %s: %v", ws.Path, err)
		}
	}

	err := m.removeAll(ws.Path)

	m.mu.Lock()
	m.states[ws.ID] = StateDone
	m.mu.Unlock()
	metrics.WorkspacesActive.Dec()

	if err != nil {
		metrics.WorkspaceCleanupsTotal.WithLabelValues("error").Inc()
		logging.Error("Failed to remove workspace %s: %v", ws.Path, err)
	} else {
		metrics.WorkspaceCleanupsTotal.WithLabelValues("removed").Inc()
		logging.Debug("Removed workspace %s", ws.Path)
	}

	time.AfterFunc(m.grace, func() { m.forget(ws.ID) })

	return true
}

// forget drops a finished workspace from the tracking map.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[id] == StateDone {
		delete(m.states, id)
	}
}

// State reports the tracked cleanup state of the workspace with the given ID.
// The second result is false once the entry has been forgotten.
func (m *Manager) State(id string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[id]
	return state, ok
}

// Tracked returns the number of entries in the tracking map.
func (m *Manager) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Active returns the number of workspaces that have not been cleaned up yet.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Shutdown cleans up every workspace that is still pending. Called during
// graceful shutdown after in-flight requests have been abandoned.
func (m *Manager) Shutdown() int {
	m.mu.Lock()
	pending := make([]*Workspace, 0, len(m.open))
	for _, ws := range m.open {
		pending = append(pending, ws)
	}
	m.mu.Unlock()

	removed := 0
	for _, ws := range pending {
		if m.Cleanup(ws) {
			removed++
		}
	}
	if removed > 0 {
		logging.Info("Removed %d pending workspace(s) during shutdown", removed)
	}
	return removed
}

// SweepOrphans removes workspace directories left behind by a previous
// process that exited without cleaning up. Entries not carrying the workspace
// prefix are never touched, and a workspace whose lock is held by another
// live process is skipped. Individual failures are logged and do not stop
// the sweep.
func (m *Manager) SweepOrphans() (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp root %s: %w", m.root, err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, m.prefix) {
			continue
		}

		path := filepath.Join(m.root, name)

		if m.isLive(path) {
			metrics.OrphansSweptTotal.WithLabelValues("skipped").Inc()
			logging.Info("Skipping workspace %s: locked by a running process", path)
			continue
		}

		if err := m.removeAll(path); err != nil {
			metrics.OrphansSweptTotal.WithLabelValues("error").Inc()
			logging.Warn("Failed to remove orphaned workspace %s: %v", path, err)
			continue
		}

		metrics.OrphansSweptTotal.WithLabelValues("removed").Inc()
		logging.Debug("Removed orphaned workspace %s", path)
		removed++
	}

	return removed, nil
}

// isLive reports whether another process holds the workspace lock.
func (m *Manager) isLive(path string) bool {
	lockPath := filepath.Join(path, lockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return false
	}

	probe := flock.New(lockPath)
	locked, err := probe.TryLock()
	if err != nil {
		return false
	}
	if !locked {
		return true
	}
	if err := probe.Unlock(); err != nil {
		logging.Debug("failed to release probe lock %s: %v", lockPath, err)
	}
	return false
}
