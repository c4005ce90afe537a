// Package resultcache stores finished pipeline results keyed by a
// content-addressed hash of the input dataset, so resubmitting the same
// samples skips the merge stages entirely.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"biorempp/internal/pipeline/models"
	"biorempp/pkg/platform/sentinel"
)

// Clock abstracts time.Now for expiry tests.
type Clock func() time.Time

// ResultCache is the store contract the orchestrator depends on. Get
// returns sentinel.ErrNotFound (wrapped) on a miss and sentinel.ErrExpired
// when the entry existed but aged out; callers treat both as misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.MergeResult, error)
	Set(ctx context.Context, key string, result *models.MergeResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context) (int, error)
}

// GenerateKey hashes canonical dataset content into a cache key. The same
// content always yields the same key.
func GenerateKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
