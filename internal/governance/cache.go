package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auditescrow/pkg/ids"
)

// CachedGateway memoizes the two gateway predicates in redis. Withdrawal
// polling by automated agents hits these reads hard; a short TTL keeps the
// pause state close to live while shedding load from the backend. Mutations
// drop the cached entries so a freeze is never served stale after a cancel.
type CachedGateway struct {
	next Gateway
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedGateway(next Gateway, rdb *redis.Client, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedGateway{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedGateway) Propose(ctx context.Context, proposer ids.Address, description string) (ids.ProposalID, error) {
	return c.next.Propose(ctx, proposer, description)
}

func (c *CachedGateway) Cancel(ctx context.Context, id ids.ProposalID) error {
	if err := c.next.Cancel(ctx, id); err != nil {
		return err
	}
	c.rdb.Del(ctx, c.key("frozen", id), c.key("invalidated", id))
	return nil
}

func (c *CachedGateway) IsWithdrawFrozen(ctx context.Context, id ids.ProposalID) (bool, error) {
	return c.cached(ctx, c.key("frozen", id), func() (bool, error) {
		return c.next.IsWithdrawFrozen(ctx, id)
	})
}

func (c *CachedGateway) IsVestingInvalidated(ctx context.Context, id ids.ProposalID) (bool, error) {
	return c.cached(ctx, c.key("invalidated", id), func() (bool, error) {
		return c.next.IsVestingInvalidated(ctx, id)
	})
}

func (c *CachedGateway) key(kind string, id ids.ProposalID) string {
	return fmt.Sprintf("gov:%s:%d", kind, id)
}

func (c *CachedGateway) cached(ctx context.Context, key string, load func() (bool, error)) (bool, error) {
	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return v == "1", nil
	}
	// Cache miss or redis failure: fall through to the backend either way.
	v, err := load()
	if err != nil {
		return false, err
	}
	val := "0"
	if v {
		val = "1"
	}
	c.rdb.Set(ctx, key, val, c.ttl)
	return v, nil
}
