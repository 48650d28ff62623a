package engine

import (
	"hash/fnv"
)

// router routes commands to shards based on the order key
type router struct {
	shardCount int
}

func newRouter(shardCount int) *router {
	return &router{shardCount: shardCount}
}

// route calculates the shard id for a given key.
// Uses FNV-1a for stable, deterministic routing.
func (r *router) route(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()) % r.shardCount
}
