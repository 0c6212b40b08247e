package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/rs/zerolog"
)

// cachedRecord is the shape stored in the fast-path cache.
type cachedRecord struct {
	RequestHash string `json:"request_hash"`
	StatusCode  int    `json:"status_code"`
	Response    []byte `json:"response"`
}

// IdempotencyGuard replays stored responses for repeated command submissions.
// Lookups hit the cache first, then the durable store. Only successful
// executions are recorded, so a failed command may be retried with the same
// key.
type IdempotencyGuard struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	ttl   time.Duration
	clock ports.Clock
	log   zerolog.Logger
}

func NewIdempotencyGuard(repo ports.IdempotencyRepository, cache ports.IdempotencyCache, ttl time.Duration, clock ports.Clock, log zerolog.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo, cache: cache, ttl: ttl, clock: clock, log: log}
}

// Execute runs fn under the given idempotency key. A repeat of the same key
// with the same request payload replays the stored response without running
// fn; the same key with a different payload is rejected with
// DUPLICATE_REQUEST. An empty key disables the guard.
func (g *IdempotencyGuard) Execute(ctx context.Context, key string, requestPayload []byte, fn func(ctx context.Context) ([]byte, int, error)) ([]byte, int, error) {
	if key == "" {
		return fn(ctx)
	}

	hash := domain.HashPayload(string(requestPayload))

	if stored, ok := g.fromCache(ctx, key); ok {
		return g.replay(key, hash, stored.RequestHash, stored.Response, stored.StatusCode)
	}

	record, err := g.repo.Find(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	if record != nil {
		g.backfillCache(ctx, key, record)
		return g.replay(key, hash, record.RequestHash, record.ResponsePayload, record.StatusCode)
	}

	response, status, err := fn(ctx)
	if err != nil {
		return nil, 0, err
	}

	rec := domain.NewIdempotencyRecord(key, string(requestPayload), response, status, g.clock.Now())
	if err := g.repo.Create(ctx, rec); err != nil {
		// A concurrent submission won the race. Replay its stored response.
		if apperror.HasCode(err, apperror.CodeDuplicateRequest) {
			winner, findErr := g.repo.Find(ctx, key)
			if findErr == nil && winner != nil {
				return g.replay(key, hash, winner.RequestHash, winner.ResponsePayload, winner.StatusCode)
			}
		}
		return nil, 0, err
	}
	g.backfillCache(ctx, key, rec)

	return response, status, nil
}

func (g *IdempotencyGuard) replay(key, requestHash, storedHash string, response []byte, status int) ([]byte, int, error) {
	if requestHash != storedHash {
		g.log.Warn().Str("idempotency_key", key).Msg("idempotency key reused with different payload")
		return nil, 0, apperror.ErrDuplicateRequest()
	}
	g.log.Debug().Str("idempotency_key", key).Msg("replaying stored response")
	return response, status, nil
}

func (g *IdempotencyGuard) fromCache(ctx context.Context, key string) (*cachedRecord, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil || raw == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			g.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency cache lookup failed")
		}
		return nil, false
	}
	var rec cachedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (g *IdempotencyGuard) backfillCache(ctx context.Context, key string, record *domain.IdempotencyRecord) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedRecord{
		RequestHash: record.RequestHash,
		StatusCode:  record.StatusCode,
		Response:    record.ResponsePayload,
	})
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, raw, g.ttl); err != nil {
		g.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency cache write failed")
	}
}
