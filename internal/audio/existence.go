package audio

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lecternapp/lectern-server/internal/domain"
)

// BlobIndex is the read side of the local audio cache.
type BlobIndex interface {
	HasAudioBlob(ctx context.Context, chapterID, signature string) (bool, error)
}

// CacheChecker answers "does cached audio exist" for many chapters at once.
// This is the one concurrent path in the engine: the check is read-only and
// idempotent, so a bounded fan-out is safe where mutating steps are not.
type CacheChecker struct {
	index BlobIndex
	batch int
}

// NewCacheChecker creates a checker with the given concurrency bound.
func NewCacheChecker(index BlobIndex, batch int) *CacheChecker {
	if batch < 1 {
		batch = 8
	}
	return &CacheChecker{index: index, batch: batch}
}

// Check returns, per chapter ID, whether cached audio exists for the given
// signature.
func (c *CacheChecker) Check(ctx context.Context, chapters []domain.Chapter, signature string) (map[string]bool, error) {
	var mu sync.Mutex
	out := make(map[string]bool, len(chapters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batch)

	for _, chapter := range chapters {
		g.Go(func() error {
			exists, err := c.index.HasAudioBlob(ctx, chapter.ID, signature)
			if err != nil {
				return err
			}
			mu.Lock()
			out[chapter.ID] = exists
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
