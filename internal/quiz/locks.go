package quiz

import "sync"

// pairLocks serializes work per (user, quiz). Entries are dropped once no
// goroutine holds or waits on them.
type pairLocks struct {
	mu sync.Mutex
	m  map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{m: map[string]*pairLock{}}
}

func pairKey(userID, quizID string) string {
	return userID + "\x00" + quizID
}

func (p *pairLocks) lock(userID, quizID string) (unlock func()) {
	k := pairKey(userID, quizID)
	p.mu.Lock()
	l, ok := p.m[k]
	if !ok {
		l = &pairLock{}
		p.m[k] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.m, k)
		}
		p.mu.Unlock()
	}
}
