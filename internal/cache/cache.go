package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jmjcoke/quorum/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ResultKey generates a cache key for a consensus run: the raw response-set
// bytes plus the strategy and preset that shaped the result. Re-analyzing an
// unchanged input with the same settings hits the cache.
func ResultKey(input []byte, strategy, preset string) string {
	h := sha256.New()
	h.Write(input)
	h.Write([]byte{0})
	h.Write([]byte(strategy))
	h.Write([]byte{0})
	h.Write([]byte(preset))
	return "quorum:v1:" + hex.EncodeToString(h.Sum(nil))
}

// GetResult retrieves and decodes a cached consensus result.
func GetResult(c Cache, key string) (*model.ConsensusResult, bool) {
	data, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	var result model.ConsensusResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.Delete(key)
		return nil, false
	}
	return &result, true
}

// SetResult encodes and stores a consensus result.
func SetResult(c Cache, key string, result *model.ConsensusResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return c.Set(key, data, ttl)
}
