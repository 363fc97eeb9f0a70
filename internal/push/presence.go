package push

import "sync"

// presenceIndex stores, per user, the user ids whose online/offline
// transitions that user may observe, and the reverse watcher index used to
// find who to notify. Both maps change in the same critical section.
type presenceIndex struct {
	mu       sync.RWMutex
	visible  map[string]map[string]struct{}
	watchers map[string]map[string]struct{}
}

func newPresenceIndex() *presenceIndex {
	return &presenceIndex{
		visible:  make(map[string]map[string]struct{}),
		watchers: make(map[string]map[string]struct{}),
	}
}

// replace sets userID's visibility set to exactly ids.
func (p *presenceIndex) replace(userID string, ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.visible[userID] {
		if w := p.watchers[id]; w != nil {
			delete(w, userID)
			if len(w) == 0 {
				delete(p.watchers, id)
			}
		}
	}
	p.visible[userID] = next
	for id := range next {
		w := p.watchers[id]
		if w == nil {
			w = make(map[string]struct{})
			p.watchers[id] = w
		}
		w[userID] = struct{}{}
	}
}

func (p *presenceIndex) list(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.visible[userID])
}

// watchersOf returns the users allowed to see userID's presence.
func (p *presenceIndex) watchersOf(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.watchers[userID])
}

func (p *presenceIndex) entries() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.visible)
}
