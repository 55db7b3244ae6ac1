package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in a single-process freecache.
// The mutex only serializes read-modify-write updates of one record.
type MemoryStore struct {
	mu    sync.Mutex
	cache *freecache.Cache
}

type memoryRecord struct {
	Authenticated bool  `json:"authenticated"`
	CreatedAt     int64 `json:"created_at"`
	LastSeen      int64 `json:"last_seen"`
}

func NewMemoryStore(sizeMB int) *MemoryStore {
	return &MemoryStore{
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
	}
}

// expireSeconds rounds ttl up to whole seconds plus one, since freecache
// expires on second boundaries. The manager enforces the exact ttl.
func expireSeconds(ttl time.Duration) int {
	secs := int(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs + 1
}

func (ms *MemoryStore) get(id string) (*memoryRecord, error) {
	val, err := ms.cache.Get([]byte(id))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("cache get session: %w", err)
	}

	rec := &memoryRecord{}
	if err := json.Unmarshal(val, rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return rec, nil
}

func (ms *MemoryStore) set(id string, rec *memoryRecord, ttl time.Duration) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := ms.cache.Set([]byte(id), val, expireSeconds(ttl)); err != nil {
		return fmt.Errorf("cache set session: %w", err)
	}
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	rec, err := ms.get(id)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:            id,
		Authenticated: rec.Authenticated,
		CreatedAt:     time.UnixMilli(rec.CreatedAt),
		LastSeen:      time.UnixMilli(rec.LastSeen),
	}, nil
}

func (ms *MemoryStore) Create(_ context.Context, s *Session, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.set(s.ID, &memoryRecord{
		Authenticated: s.Authenticated,
		CreatedAt:     s.CreatedAt.UnixMilli(),
		LastSeen:      s.LastSeen.UnixMilli(),
	}, ttl)
}

func (ms *MemoryStore) Touch(_ context.Context, id string, lastSeen time.Time, ttl time.Duration) error {
	return ms.update(id, ttl, func(rec *memoryRecord) {
		rec.LastSeen = lastSeen.UnixMilli()
	})
}

func (ms *MemoryStore) MarkAuthenticated(_ context.Context, id string, ttl time.Duration) error {
	return ms.update(id, ttl, func(rec *memoryRecord) {
		rec.Authenticated = true
	})
}

func (ms *MemoryStore) update(id string, ttl time.Duration, mutate func(rec *memoryRecord)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, err := ms.get(id)
	if err != nil {
		return err
	}
	mutate(rec)
	return ms.set(id, rec, ttl)
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cache.Del([]byte(id))
	return nil
}

func (ms *MemoryStore) IDs(_ context.Context) ([]string, error) {
	var ids []string
	it := ms.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		ids = append(ids, string(entry.Key))
	}
	return ids, nil
}
