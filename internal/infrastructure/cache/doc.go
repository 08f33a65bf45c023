// Package cache provides tag-invalidated caches and idempotency stores,
// each with an in-memory and a Redis implementation.
package cache
