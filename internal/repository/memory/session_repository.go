package memory

import (
	"time"

	"video-segmentation-be/internal/model"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the in-memory owner of all live sessions. Sessions
// expire after the configured idle TTL; the go-cache janitor sweeps them
// out on its own cadence without stalling per-session operations. Every
// reclaim (explicit delete or TTL eviction) runs through the reclaim
// handler exactly once, so an active propagation run is always cancelled
// before its session disappears.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl, sweepInterval time.Duration) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(ttl, sweepInterval),
	}
}

// SetReclaimHandler registers the teardown hook. Must be called before the
// first Save; the hook must be idempotent because Delete and the janitor
// can race.
func (r *SessionRepository) SetReclaimHandler(fn func(session *model.Session)) {
	r.cache.OnEvicted(func(_ string, v interface{}) {
		fn(v.(*model.Session))
	})
}

func (r *SessionRepository) Save(session *model.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the live session and slides its expiration window. go-cache
// keeps the deadline fixed at Set time, so a successful lookup re-Sets the
// entry to restart the TTL.
func (r *SessionRepository) Get(sessionID string) (*model.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	session := x.(*model.Session)
	session.Mu.Lock()
	closed := session.Closed
	if !closed {
		session.Touch()
	}
	session.Mu.Unlock()
	if closed {
		return nil, false
	}
	// The re-Set races a concurrent Delete: it could resurrect a key the
	// delete just removed. A fresh lookup narrows the window; an entry
	// that slips through anyway stays hidden behind the Closed check and
	// the janitor reaps it on the next sweep.
	if _, live := r.cache.Get(sessionID); !live {
		return nil, false
	}
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, true
}

// Delete removes the session, firing the reclaim handler.
func (r *SessionRepository) Delete(sessionID string) bool {
	if _, found := r.cache.Get(sessionID); !found {
		return false
	}
	r.cache.Delete(sessionID)
	return true
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
