package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scottkmcmillan/relate/internal/domain"
)

// ReferenceCache is the process-wide handle for cached external references.
// Lookups are served from an in-memory snapshot keyed by topic keyword, so a
// cache miss costs nothing and never triggers a live fetch. The snapshot is
// replaced atomically by Reload; readers never observe a partial entry.
type ReferenceCache struct {
	db  *pgxpool.Pool
	ttl time.Duration

	mu       sync.RWMutex
	snapshot map[string][]domain.ExternalReference
}

func NewReferenceCache(db *pgxpool.Pool, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		db:       db,
		ttl:      ttl,
		snapshot: make(map[string][]domain.ExternalReference),
	}
}

// Lookup returns cached references for any of the given keywords, deduplicated
// by id keeping the highest score.
func (c *ReferenceCache) Lookup(ctx context.Context, keywords []string) ([]domain.ExternalReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	best := make(map[string]domain.ExternalReference)
	for _, kw := range keywords {
		for _, ref := range c.snapshot[strings.ToLower(kw)] {
			if existing, ok := best[ref.ID]; !ok || ref.Score > existing.Score {
				best[ref.ID] = ref
			}
		}
	}

	refs := make([]domain.ExternalReference, 0, len(best))
	for _, ref := range best {
		refs = append(refs, ref)
	}
	return refs, nil
}

// Reload builds a fresh snapshot from entries still inside the TTL and swaps
// it in atomically.
func (c *ReferenceCache) Reload(ctx context.Context) error {
	cutoff := time.Now().Add(-c.ttl)

	rows, err := c.db.Query(ctx,
		`SELECT id, topic, title, snippet, score, fetched_at
		 FROM external_references
		 WHERE fetched_at >= $1`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("reference cache query: %w", err)
	}
	defer rows.Close()

	next := make(map[string][]domain.ExternalReference)
	for rows.Next() {
		var ref domain.ExternalReference
		if err := rows.Scan(&ref.ID, &ref.Topic, &ref.Title, &ref.Snippet, &ref.Score, &ref.FetchedAt); err != nil {
			return fmt.Errorf("scan external reference: %w", err)
		}
		key := strings.ToLower(ref.Topic)
		next[key] = append(next[key], ref)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()
	return nil
}

// ExpireStale deletes entries past the TTL. The background refresh process
// owns repopulation; this core only prunes.
func (c *ReferenceCache) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl)
	tag, err := c.db.Exec(ctx,
		`DELETE FROM external_references WHERE fetched_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
