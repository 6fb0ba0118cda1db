package memory

import (
	"sync"
	"time"

	"meal-subscription-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type cachedSubscription struct {
	subscription *entity.Subscription
	pendingSync  bool
}

// SubscriptionStore is the process-local copy of subscriptions used when the
// primary store is unreachable. Entries written while the primary was down
// never expire until they are synced back.
type SubscriptionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSubscriptionStore(ttl time.Duration) *SubscriptionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := cache.New(ttl, 10*time.Minute)
	return &SubscriptionStore{
		cache: c,
	}
}

func (r *SubscriptionStore) Save(sub *entity.Subscription, pendingSync bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiration := cache.DefaultExpiration
	if pendingSync {
		expiration = cache.NoExpiration
	}
	r.cache.Set(sub.Id.String(), &cachedSubscription{subscription: sub.Clone(), pendingSync: pendingSync}, expiration)
}

// Get returns a private copy of the cached subscription.
func (r *SubscriptionStore) Get(id uuid.UUID) (sub *entity.Subscription, pendingSync bool, found bool) {
	x, ok := r.cache.Get(id.String())
	if !ok {
		return nil, false, false
	}
	entry := x.(*cachedSubscription)
	return entry.subscription.Clone(), entry.pendingSync, true
}

func (r *SubscriptionStore) Pending() []*entity.Subscription {
	var out []*entity.Subscription
	for _, item := range r.cache.Items() {
		entry := item.Object.(*cachedSubscription)
		if entry.pendingSync {
			out = append(out, entry.subscription.Clone())
		}
	}
	return out
}

func (r *SubscriptionStore) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(id.String())
}

// DeleteIfVersion drops the entry only while it still holds version. A local
// write committed after the snapshot was taken keeps its entry pending.
func (r *SubscriptionStore) DeleteIfVersion(id uuid.UUID, version int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.cache.Get(id.String())
	if !ok {
		return true
	}
	if x.(*cachedSubscription).subscription.Version != version {
		return false
	}
	r.cache.Delete(id.String())
	return true
}
