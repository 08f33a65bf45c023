package cache

import (
	"context"
	"time"
)

// TagCache stores JSON-encoded values under keys, each optionally carrying
// tags. Invalidating a tag drops every key that was set with it.
type TagCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

const (
	keyPrefix = "cache:"
	tagPrefix = "tag:"
)

func tagKey(tag string) string { return tagPrefix + tag }
