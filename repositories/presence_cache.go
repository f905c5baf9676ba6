//go:generate go run go.uber.org/mock/mockgen -source=presence_cache.go -destination=../mocks/mock_presence_cache.go -package=mocks
package repositories

import (
	"context"
	"huddle/contract"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const onlineUsersKey = "huddle:online_users"

// OnlineSet is the part of the redis client used for the online users set.
type OnlineSet interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

// PresenceCache mirrors the online flag into a redis set shared by every node.
// The cache follows live state: it is updated even when the durable write failed,
// and that failure is still returned to the caller.
type PresenceCache struct {
	store  contract.PresenceStore
	client OnlineSet
	log    *slog.Logger
}

func NewPresenceCache(store contract.PresenceStore, client OnlineSet, log *slog.Logger) *PresenceCache {
	return &PresenceCache{store: store, client: client, log: log}
}

func (p *PresenceCache) SetUserOnline(ctx context.Context, userID string, online bool) error {
	storeErr := p.store.SetUserOnline(ctx, userID, online)

	var cacheErr error
	if online {
		cacheErr = p.client.SAdd(ctx, onlineUsersKey, userID).Err()
	} else {
		cacheErr = p.client.SRem(ctx, onlineUsersKey, userID).Err()
	}
	if cacheErr != nil {
		p.log.Warn("Online users cache update failed", "user", userID, "online", online, "error", cacheErr)
	}
	return storeErr
}

// OnlineUsers lists the users currently online across the cluster.
func (p *PresenceCache) OnlineUsers(ctx context.Context) ([]string, error) {
	return p.client.SMembers(ctx, onlineUsersKey).Result()
}
