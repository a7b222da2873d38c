package booking

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"roomreserve/internal/repository"
)

// OccupancyCache is a read-through redis cache of per-session seat
// counts. The catalog reads through it; every reservation attempt
// invalidates it so observers see fresh counts promptly. A nil redis
// client degrades to counting straight from the store.
type OccupancyCache struct {
	rdb          *redis.Client
	reservations *repository.ReservationRepo
	ttl          time.Duration
}

// NewOccupancyCache builds an OccupancyCache. rdb may be nil.
func NewOccupancyCache(rdb *redis.Client, reservations *repository.ReservationRepo, ttl time.Duration) *OccupancyCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &OccupancyCache{rdb: rdb, reservations: reservations, ttl: ttl}
}

func occupancyKey(sessionID uint64) string {
	return fmt.Sprintf("occupancy:%d", sessionID)
}

// Count returns the current reservation count for a session, serving
// from redis when possible and falling back to the store.
func (c *OccupancyCache) Count(ctx context.Context, sessionID uint64) (int, error) {
	if c.rdb != nil {
		if v, err := c.rdb.Get(ctx, occupancyKey(sessionID)).Result(); err == nil {
			if n, perr := strconv.Atoi(v); perr == nil {
				return n, nil
			}
		}
	}
	n, err := c.reservations.CountBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if c.rdb != nil {
		if err := c.rdb.SetEx(ctx, occupancyKey(sessionID), strconv.Itoa(n), c.ttl).Err(); err != nil {
			log.Printf("occupancy: cache set failed for session %d: %v", sessionID, err)
		}
	}
	return n, nil
}

// Invalidate drops the cached count for a session. Failures are logged,
// never propagated: a stale count self-heals at TTL expiry.
func (c *OccupancyCache) Invalidate(ctx context.Context, sessionID uint64) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, occupancyKey(sessionID)).Err(); err != nil {
		log.Printf("occupancy: cache invalidate failed for session %d: %v", sessionID, err)
	}
}
