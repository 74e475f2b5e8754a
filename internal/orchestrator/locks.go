package orchestrator

import (
	"context"
	"sync"
)

type sessionKey struct {
	actorID   string
	sessionID string
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

// sessionLocks serializes turns per actor+session. Entries are removed once
// nobody holds or waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[sessionKey]*sessionLock
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[sessionKey]*sessionLock)}
}

// lock blocks until the session is free or ctx is done. The returned func
// releases the lock.
func (l *sessionLocks) lock(ctx context.Context, actorID, sessionID string) (func(), error) {
	key := sessionKey{actorID, sessionID}

	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			l.release(key, sl)
		}, nil
	case <-ctx.Done():
		l.release(key, sl)
		return nil, ctx.Err()
	}
}

func (l *sessionLocks) release(key sessionKey, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
