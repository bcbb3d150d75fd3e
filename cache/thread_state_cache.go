package cache

import (
	"time"

	"github.com/mohitkumar/loanwizard/model"
	c "github.com/patrickmn/go-cache"
)

// ThreadStateCache keeps the last thread state read from the workflow
// service, so views can render without another round trip.
type ThreadStateCache struct {
	cache *c.Cache
}

func NewThreadStateCache(ttl time.Duration) *ThreadStateCache {
	if ttl <= 0 {
		ttl = c.NoExpiration
	}
	return &ThreadStateCache{
		cache: c.New(ttl, 10*time.Minute),
	}
}

// SaveThreadState replaces whatever was cached for threadId.
func (ch *ThreadStateCache) SaveThreadState(threadId string, state model.ThreadState) {
	ch.cache.Set(threadId, state, c.DefaultExpiration)
}

func (ch *ThreadStateCache) GetThreadState(threadId string) (model.ThreadState, bool) {
	v, found := ch.cache.Get(threadId)
	if !found {
		return model.ThreadState{}, false
	}
	return v.(model.ThreadState), true
}

func (ch *ThreadStateCache) Invalidate(threadId string) {
	ch.cache.Delete(threadId)
}
