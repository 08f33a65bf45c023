package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TagCache is a key/value cache whose entries can be dropped in bulk by tag
type TagCache interface {
	// Get decodes the cached value into dest. found is false on a miss.
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

// VariantTag tags cache entries derived from one variant
func VariantTag(id uuid.UUID) string { return "variant:" + id.String() }

// ProductTag tags cache entries derived from any variant of a product
func ProductTag(id uuid.UUID) string { return "product:" + id.String() }

// MerchantTag tags cache entries derived from a merchant's catalog
func MerchantTag(id uuid.UUID) string { return "merchant:" + id.String() }

const defaultLookupTTL = 5 * time.Minute

// CachedLookup serves variant lookups from a TagCache and falls through
// to the next Lookup on a miss. Cache errors are logged and ignored.
type CachedLookup struct {
	next   Lookup
	cache  TagCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup creates a new CachedLookup
func NewCachedLookup(next Lookup, cache TagCache, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	if ttl <= 0 {
		ttl = defaultLookupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{next: next, cache: cache, ttl: ttl, logger: logger}
}

func variantCacheKey(id uuid.UUID) string {
	return "catalog:variant:" + id.String()
}

// GetVariants implements Lookup
func (l *CachedLookup) GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]VariantInfo, error) {
	result := make(map[uuid.UUID]VariantInfo, len(ids))
	var missing []uuid.UUID

	for _, id := range ids {
		var info VariantInfo
		found, err := l.cache.Get(ctx, variantCacheKey(id), &info)
		if err != nil {
			l.logger.Warn("Variant cache read failed", zap.String("variant_id", id.String()), zap.Error(err))
		}
		if found {
			result[id] = info
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := l.next.GetVariants(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, info := range loaded {
		result[id] = info
		tags := []string{VariantTag(id), ProductTag(info.ProductID), MerchantTag(info.MerchantID)}
		if err := l.cache.Set(ctx, variantCacheKey(id), info, l.ttl, tags...); err != nil {
			l.logger.Warn("Variant cache write failed", zap.String("variant_id", id.String()), zap.Error(err))
		}
	}
	return result, nil
}

var _ Lookup = (*CachedLookup)(nil)
