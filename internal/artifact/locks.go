package artifact

import "sync"

// Locks is a set of per-path writer locks. The zero value is ready to use.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the caller holds the lock for path and returns the
// function that releases it.
func (l *Locks) Lock(path string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*pathLock)
	}
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			pl.mu.Unlock()

			l.mu.Lock()
			pl.refs--
			if pl.refs == 0 {
				delete(l.locks, path)
			}
			l.mu.Unlock()
		})
	}
}

// held returns the number of paths with a holder or waiter.
func (l *Locks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
