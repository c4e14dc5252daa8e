package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rishabhv97/kiwisqft/internal/models"
)

const (
	generationKey = "kiwisqft:search:gen"
	resultPrefix  = "kiwisqft:search:res"
)

// ISearchCache stores search results keyed by query. Invalidate makes every
// previously stored result unreachable.
//
// Get reports the generation it looked in; a miss must be filled with Set
// under that same generation, so results read from the store before an
// Invalidate can never be served after it.
type ISearchCache interface {
	Get(ctx context.Context, queryKey string) (listings []models.Listing, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, queryKey string, listings []models.Listing) error
	Invalidate(ctx context.Context) error
}

type searchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSearchCache returns a Redis backed cache. A zero ttl disables caching.
func NewSearchCache(rdb *redis.Client, ttl time.Duration) ISearchCache {
	if rdb == nil || ttl <= 0 {
		return noopCache{}
	}
	return &searchCache{rdb: rdb, ttl: ttl}
}

func (c *searchCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func resultKey(gen int64, queryKey string) string {
	sum := sha1.Sum([]byte(queryKey))
	return fmt.Sprintf("%s:%d:%s", resultPrefix, gen, hex.EncodeToString(sum[:]))
}

func (c *searchCache) Get(ctx context.Context, queryKey string) ([]models.Listing, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read search cache generation: %w", err)
	}
	raw, err := c.rdb.Get(ctx, resultKey(gen, queryKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("failed to read cached search: %w", err)
	}
	var listings []models.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, gen, false, fmt.Errorf("corrupt cached search: %w", err)
	}
	return listings, gen, true, nil
}

// Set stores listings under gen, the generation returned by the Get that
// missed. If an Invalidate ran in between, the entry lands in a generation
// nobody reads any more.
func (c *searchCache) Set(ctx context.Context, gen int64, queryKey string, listings []models.Listing) error {
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to encode search results: %w", err)
	}
	if err := c.rdb.Set(ctx, resultKey(gen, queryKey), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache search results: %w", err)
	}
	return nil
}

// Invalidate bumps the generation. Old entries expire on their own.
func (c *searchCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]models.Listing, int64, bool, error) {
	return nil, 0, false, nil
}
func (noopCache) Set(context.Context, int64, string, []models.Listing) error { return nil }
func (noopCache) Invalidate(context.Context) error                           { return nil }
