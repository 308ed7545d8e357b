package chatbot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	appErr "github.com/taakra/engine/pkg/errors"
)

const (
	// MaxTurns caps how many turns are kept per user.
	MaxTurns = 20

	defaultMemoryUsers = 10000
	defaultHistoryTTL  = 24 * time.Hour
)

// HistoryStore keeps the recent conversation of each user.
type HistoryStore interface {
	Load(ctx context.Context, userID string) ([]Turn, error)
	Append(ctx context.Context, userID string, turns ...Turn) error
	Clear(ctx context.Context, userID string) error
}

// MemoryHistory is a process-local store. The least recently active users are
// evicted once maxUsers is reached.
type MemoryHistory struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []Turn]
}

func NewMemoryHistory(maxUsers int) *MemoryHistory {
	if maxUsers <= 0 {
		maxUsers = defaultMemoryUsers
	}
	cache, _ := lru.New[string, []Turn](maxUsers)
	return &MemoryHistory{cache: cache}
}

func (m *MemoryHistory) Load(_ context.Context, userID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns, _ := m.cache.Get(userID)
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryHistory) Append(_ context.Context, userID string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, _ := m.cache.Get(userID)
	next := append(append([]Turn{}, cur...), turns...)
	if len(next) > MaxTurns {
		next = next[len(next)-MaxTurns:]
	}
	m.cache.Add(userID, next)
	return nil
}

func (m *MemoryHistory) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(userID)
	return nil
}

// RedisHistory shares conversations across API instances as capped Redis lists.
type RedisHistory struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisHistory(rdb redis.UniversalClient, ttl time.Duration) *RedisHistory {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &RedisHistory{rdb: rdb, ttl: ttl}
}

func historyKey(userID string) string {
	return "chatbot:history:" + userID
}

func (r *RedisHistory) Load(ctx context.Context, userID string) ([]Turn, error) {
	raw, err := r.rdb.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "load chatbot history failed")
	}
	out := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisHistory) Append(ctx context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "encode chatbot turn failed")
		}
		values = append(values, b)
	}

	key := historyKey(userID)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, values...)
		p.LTrim(ctx, key, -MaxTurns, -1)
		p.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "append chatbot history failed")
	}
	return nil
}

func (r *RedisHistory) Clear(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, historyKey(userID)).Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "clear chatbot history failed")
	}
	return nil
}
