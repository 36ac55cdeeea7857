// Package redis keeps staged attendance candidates in Redis.
//
// Staging is per owner and short-lived: an operator pastes text, reviews the
// unknown names, then confirms or cancels. Each owner's candidates are one
// JSON value under "staging:<owner>" with a TTL, so abandoned reviews expire
// on their own.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/ledger"
)

const stagingPrefix = "staging:"

// Staging implements ledger.StagingStore.
type Staging struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ ledger.StagingStore = (*Staging)(nil)

// NewClient opens a Redis connection and pings it.
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// NewStaging wraps rdb. A zero ttl keeps staged candidates until cleared.
func NewStaging(rdb *goredis.Client, ttl time.Duration, logger *zap.Logger) *Staging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Staging{rdb: rdb, ttl: ttl, logger: logger}
}

func stagingKey(owner ledger.OwnerID) string {
	return stagingPrefix + string(owner)
}

// LoadStaging returns the owner's candidates, empty when nothing is staged
// or the TTL ran out.
func (s *Staging) LoadStaging(ctx context.Context, owner ledger.OwnerID) ([]ledger.UnresolvedCandidate, error) {
	raw, err := s.rdb.Get(ctx, stagingKey(owner)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []ledger.UnresolvedCandidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load staging: %w", err)
	}

	var candidates []ledger.UnresolvedCandidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		// A value we can't read is as good as none; drop it so the next save starts clean.
		s.logger.Warn("discarding unreadable staging value",
			zap.String("owner", string(owner)), zap.Error(err))
		_ = s.rdb.Del(ctx, stagingKey(owner)).Err()
		return []ledger.UnresolvedCandidate{}, nil
	}
	return candidates, nil
}

// SaveStaging replaces the owner's candidates and refreshes the TTL.
// Saving an empty list clears the key.
func (s *Staging) SaveStaging(ctx context.Context, owner ledger.OwnerID, candidates []ledger.UnresolvedCandidate) error {
	if len(candidates) == 0 {
		return s.ClearStaging(ctx, owner)
	}

	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to encode staging: %w", err)
	}
	if err := s.rdb.Set(ctx, stagingKey(owner), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save staging: %w", err)
	}
	return nil
}

// ClearStaging deletes the owner's candidates.
func (s *Staging) ClearStaging(ctx context.Context, owner ledger.OwnerID) error {
	if err := s.rdb.Del(ctx, stagingKey(owner)).Err(); err != nil {
		return fmt.Errorf("failed to clear staging: %w", err)
	}
	return nil
}
