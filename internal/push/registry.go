package push

import (
	"sort"
	"sync"
)

// registry owns the live sessions, indexed by user id, connection id and
// session auth token.
type registry struct {
	mu         sync.RWMutex
	byUser     map[string]map[string]*session
	byID       map[string]*session
	byToken    map[string]map[string]*session
	maxPerUser int
}

func newRegistry(maxPerUser int) *registry {
	return &registry{
		byUser:     make(map[string]map[string]*session),
		byID:       make(map[string]*session),
		byToken:    make(map[string]map[string]*session),
		maxPerUser: maxPerUser,
	}
}

// add stores s. It reports whether s is the user's first live session and
// returns the sessions evicted to stay within maxPerUser (oldest first).
// A session whose id is already registered is ignored.
func (r *registry) add(s *session) (added, first bool, evicted []*session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.id]; exists {
		return false, false, nil
	}

	userSessions := r.byUser[s.userID]
	first = len(userSessions) == 0
	if userSessions == nil {
		userSessions = make(map[string]*session)
		r.byUser[s.userID] = userSessions
	}

	if r.maxPerUser > 0 && len(userSessions) >= r.maxPerUser {
		oldest := sortedByAge(userSessions)
		for _, old := range oldest[:len(userSessions)-r.maxPerUser+1] {
			r.removeLocked(old)
			evicted = append(evicted, old)
		}
		// The user stays online across an eviction.
		if r.byUser[s.userID] == nil {
			userSessions = make(map[string]*session)
			r.byUser[s.userID] = userSessions
		}
	}

	userSessions[s.id] = s
	r.byID[s.id] = s
	if s.authToken != "" {
		tokenSessions := r.byToken[s.authToken]
		if tokenSessions == nil {
			tokenSessions = make(map[string]*session)
			r.byToken[s.authToken] = tokenSessions
		}
		tokenSessions[s.id] = s
	}
	return true, first, evicted
}

// remove deletes the session with the given id. It reports whether that was
// the user's last session.
func (r *registry) remove(id string) (s *session, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	r.removeLocked(s)
	return s, len(r.byUser[s.userID]) == 0
}

// removeUser deletes every session of userID.
func (r *registry) removeUser(userID string) []*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	userSessions := r.byUser[userID]
	removed := make([]*session, 0, len(userSessions))
	for _, s := range userSessions {
		removed = append(removed, s)
	}
	for _, s := range removed {
		r.removeLocked(s)
	}
	return removed
}

// removeToken deletes every session that authenticated with token. It
// returns the removed sessions and the users left with no session.
func (r *registry) removeToken(token string) (removed []*session, offline []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenSessions := r.byToken[token]
	users := make(map[string]struct{})
	for _, s := range tokenSessions {
		removed = append(removed, s)
		users[s.userID] = struct{}{}
	}
	for _, s := range removed {
		r.removeLocked(s)
	}
	for userID := range users {
		if len(r.byUser[userID]) == 0 {
			offline = append(offline, userID)
		}
	}
	sort.Strings(offline)
	return removed, offline
}

func (r *registry) removeLocked(s *session) {
	delete(r.byID, s.id)
	if userSessions := r.byUser[s.userID]; userSessions != nil {
		delete(userSessions, s.id)
		if len(userSessions) == 0 {
			delete(r.byUser, s.userID)
		}
	}
	if s.authToken != "" {
		if tokenSessions := r.byToken[s.authToken]; tokenSessions != nil {
			delete(tokenSessions, s.id)
			if len(tokenSessions) == 0 {
				delete(r.byToken, s.authToken)
			}
		}
	}
}

// sessionsOf returns a snapshot of userID's sessions.
func (r *registry) sessionsOf(userID string) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userSessions := r.byUser[userID]
	out := make([]*session, 0, len(userSessions))
	for _, s := range userSessions {
		out = append(out, s)
	}
	return out
}

// sessionsOfUsers returns a snapshot of the sessions of every listed user.
// Users without a session are skipped.
func (r *registry) sessionsOfUsers(userIDs []string) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*session
	for _, userID := range userIDs {
		for _, s := range r.byUser[userID] {
			out = append(out, s)
		}
	}
	return out
}

func (r *registry) online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// all returns a snapshot of every session.
func (r *registry) all() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *registry) userCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// clear removes and returns every session.
func (r *registry) clear() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	r.byUser = make(map[string]map[string]*session)
	r.byID = make(map[string]*session)
	r.byToken = make(map[string]map[string]*session)
	return out
}

// sortedByAge orders sessions oldest first, breaking ties by id.
func sortedByAge(sessions map[string]*session) []*session {
	out := make([]*session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].connectedAt.Equal(out[j].connectedAt) {
			return out[i].id < out[j].id
		}
		return out[i].connectedAt.Before(out[j].connectedAt)
	})
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
