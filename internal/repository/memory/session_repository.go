package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"medical-assistant-be/pkg/store"
)

// SessionRepository holds per-conversation state in memory with an
// idle-timeout eviction, so abandoned conversations do not leak.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(idleTimeout time.Duration) *SessionRepository {
	if idleTimeout <= 0 {
		idleTimeout = 1 * time.Hour
	}
	c := cache.New(idleTimeout, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(state *store.ConversationState) {
	r.cache.Set(state.ID, state, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.ConversationState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.ConversationState), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
