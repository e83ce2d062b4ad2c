package tax

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedSource wraps a RuleSource with a Redis cache keyed per
// (organization, day). Concurrent loads for the same key collapse into
// one upstream query via singleflight.
type CachedSource struct {
	source RuleSource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedSource(source RuleSource, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, client: client, ttl: ttl}
}

func ruleSetKey(orgID int64, date time.Time) string {
	return fmt.Sprintf("tax:ruleset:%d:%s", orgID, date.Format("2006-01-02"))
}

// RuleSet serves the rule set from cache, loading and populating on miss.
func (c *CachedSource) RuleSet(ctx context.Context, orgID int64, date time.Time) (RuleSet, error) {
	if c.client == nil {
		return c.source.RuleSet(ctx, orgID, date)
	}
	key := ruleSetKey(orgID, date)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var set RuleSet
		if err := json.Unmarshal(payload, &set); err == nil {
			return set, nil
		}
		// Corrupt entry: fall through to reload.
	} else if err != redis.Nil {
		return RuleSet{}, err
	}

	resCh := c.group.DoChan(key, func() (any, error) {
		set, err := c.source.RuleSet(ctx, orgID, date)
		if err != nil {
			return RuleSet{}, err
		}
		raw, err := json.Marshal(set)
		if err != nil {
			return RuleSet{}, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return RuleSet{}, err
		}
		return set, nil
	})
	select {
	case <-ctx.Done():
		return RuleSet{}, ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			return RuleSet{}, res.Err
		}
		return res.Val.(RuleSet), nil
	}
}

// Invalidate drops the cached rule set for one organization and day,
// used after out-of-band reference data edits.
func (c *CachedSource) Invalidate(ctx context.Context, orgID int64, date time.Time) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, ruleSetKey(orgID, date)).Err()
}
