package engine

import "sync"

// appLocks serializes per-app state mutation. Events for distinct apps
// never contend; two events for the same app take turns.
type appLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAppLocks() *appLocks {
	return &appLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for an app, creating it on first use. Mutexes are
// never removed; the tracked-app set is small and stable.
func (l *appLocks) get(appID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[appID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[appID] = m
	}
	return m
}
