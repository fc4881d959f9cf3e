// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package history

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisKey is the set holding posted links.
const RedisKey = "postbot:history"

// Redis is a Store backed by a Redis set.
type Redis struct {
	rdb *redis.Client
	key string
}

// OpenRedis connects to the Redis server at url and checks that it responds.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, key: RedisKey}, nil
}

// Load returns every recorded link.
func (s *Redis) Load(ctx context.Context) (Set, error) {
	links, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	set := make(Set, len(links))
	for _, l := range links {
		set.Add(l)
	}
	return set, nil
}

// Append records r.
func (s *Redis) Append(ctx context.Context, r Record) error {
	return s.rdb.SAdd(ctx, s.key, r.Link).Err()
}

// Close closes the client.
func (s *Redis) Close() error {
	return s.rdb.Close()
}
