package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/repositories"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
)

// CachedCaseAdapter wraps a CaseRepository with a read-through cache
type CachedCaseAdapter struct {
	adapter repositories.CaseRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedCaseAdapter creates a new cached case adapter
func NewCachedCaseAdapter(adapter repositories.CaseRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.CaseRepository {
	return &CachedCaseAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Cache TTLs (in seconds)
const (
	caseByIDTTL  = 300
	casesListTTL = 60
)

const casesListCacheKey = "cases:list"

func caseCacheKey(id string) string {
	return fmt.Sprintf("case:%s", id)
}

// GetByID retrieves a case by ID with caching
func (a *CachedCaseAdapter) GetByID(ctx context.Context, id string) (*entities.Case, error) {
	cacheKey := caseCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var c entities.Case
		if err := json.Unmarshal(cached, &c); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, cacheKey)
			return &c, nil
		}
		log.Warn().Err(err).Str("case_id", id).Msg("Failed to unmarshal cached case")
	}
	observability.RecordCacheMiss(ctx, a.metrics, cacheKey)

	c, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(ctx, cacheKey, c, caseByIDTTL)
	return c, nil
}

// List retrieves every case with caching
func (a *CachedCaseAdapter) List(ctx context.Context) ([]*entities.Case, error) {
	if cached, err := a.cache.Get(ctx, casesListCacheKey); err == nil {
		var cases []*entities.Case
		if err := json.Unmarshal(cached, &cases); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, casesListCacheKey)
			return cases, nil
		}
	}
	observability.RecordCacheMiss(ctx, a.metrics, casesListCacheKey)

	cases, err := a.adapter.List(ctx)
	if err != nil {
		return nil, err
	}

	a.store(ctx, casesListCacheKey, cases, casesListTTL)
	return cases, nil
}

// Create creates a case and invalidates the list cache
func (a *CachedCaseAdapter) Create(ctx context.Context, c *entities.Case) error {
	if err := a.adapter.Create(ctx, c); err != nil {
		return err
	}
	a.invalidate(ctx, casesListCacheKey)
	return nil
}

// Replace overwrites a case and invalidates its cache entries
func (a *CachedCaseAdapter) Replace(ctx context.Context, c *entities.Case) error {
	if err := a.adapter.Replace(ctx, c); err != nil {
		return err
	}
	a.invalidate(ctx, caseCacheKey(c.ID), casesListCacheKey)
	return nil
}

// Delete removes a case and invalidates its cache entries
func (a *CachedCaseAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, caseCacheKey(id), casesListCacheKey)
	return nil
}

func (a *CachedCaseAdapter) store(ctx context.Context, key string, value any, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache value")
	}
}

func (a *CachedCaseAdapter) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := a.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate cache")
		}
	}
}
