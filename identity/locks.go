package identity

import "sync"

// meetingLocks serializes writes per meeting. Entries are dropped once no
// goroutine holds or waits for them.
type meetingLocks struct {
	mu    sync.Mutex
	locks map[string]*meetingLock
}

type meetingLock struct {
	mu   sync.Mutex
	refs int
}

func newMeetingLocks() *meetingLocks {
	return &meetingLocks{locks: make(map[string]*meetingLock)}
}

// lock blocks until meetingID is free and returns its unlock function.
func (l *meetingLocks) lock(meetingID string) func() {
	l.mu.Lock()
	ml, ok := l.locks[meetingID]
	if !ok {
		ml = &meetingLock{}
		l.locks[meetingID] = ml
	}
	ml.refs++
	l.mu.Unlock()

	ml.mu.Lock()
	return func() {
		ml.mu.Unlock()
		l.mu.Lock()
		ml.refs--
		if ml.refs == 0 {
			delete(l.locks, meetingID)
		}
		l.mu.Unlock()
	}
}
