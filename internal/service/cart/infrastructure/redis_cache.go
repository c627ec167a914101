// internal/service/cart/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	pkgredis "storefront/internal/pkg/redis"
	"storefront/internal/service/cart/domain"
)

const (
	headerKeyPrefix = "cart:"
	itemsKeySuffix  = ":items"
	activeSetKey    = "carts:active"

	// 减数量脚本: 原子减, 减到 0 及以下时顺手删掉该 field,
	// 避免留下数量为 0 的僵尸行。
	decrItemScript = "cart_decr_item"
	decrItemLua    = `
local qty = redis.call('HINCRBY', KEYS[1], ARGV[1], -tonumber(ARGV[2]))
if qty <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
  return 0
end
return qty
`
)

// RedisCartCache 以 Redis 作为购物车的第一存储。
// header 是带 TTL 的 JSON 串, 商品数量是 hash 里的原子计数器。
type RedisCartCache struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisCartCache(client *pkgredis.Client, ttl time.Duration) (*RedisCartCache, error) {
	if err := client.LoadScriptFromContent(decrItemScript, decrItemLua); err != nil {
		return nil, err
	}
	return &RedisCartCache{client: client, ttl: ttl}, nil
}

func headerKey(cartID string) string { return headerKeyPrefix + cartID }
func itemsKey(cartID string) string  { return headerKeyPrefix + cartID + itemsKeySuffix }

func (c *RedisCartCache) SaveHeader(ctx context.Context, header *domain.CartHeader) error {
	header.UpdatedAt = time.Now()
	data, err := json.Marshal(header)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal cart header")
	}
	rdb := c.client.GetClient()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, headerKey(header.CartID), data, c.ttl)
	// 写 header 时顺带续期商品 hash, 两个键同生共死。
	pipe.Expire(ctx, itemsKey(header.CartID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.Wrap(err, "save cart header")
	}
	return nil
}

func (c *RedisCartCache) GetHeader(ctx context.Context, cartID string) (*domain.CartHeader, error) {
	data, err := c.client.GetClient().Get(ctx, headerKey(cartID)).Bytes()
	if err == goredis.Nil {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get cart header")
	}
	var header domain.CartHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal cart header")
	}
	return &header, nil
}

func (c *RedisCartCache) IncrementItem(ctx context.Context, cartID, productID string, delta int64) (int64, error) {
	rdb := c.client.GetClient()
	pipe := rdb.TxPipeline()
	incr := pipe.HIncrBy(ctx, itemsKey(cartID), productID, delta)
	pipe.Expire(ctx, itemsKey(cartID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, pkgerrors.Wrap(err, "increment cart item")
	}
	return incr.Val(), nil
}

func (c *RedisCartCache) DecrementItem(ctx context.Context, cartID, productID string, delta int64) (int64, error) {
	res, err := c.client.RunScript(ctx, decrItemScript, []string{itemsKey(cartID)}, productID, delta)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "decrement cart item")
	}
	qty, _ := res.(int64)
	return qty, nil
}

func (c *RedisCartCache) Items(ctx context.Context, cartID string) (map[string]int, error) {
	raw, err := c.client.GetClient().HGetAll(ctx, itemsKey(cartID)).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read cart items")
	}
	items := make(map[string]int, len(raw))
	for productID, qty := range raw {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "cart %s has non-numeric quantity for %s", cartID, productID)
		}
		items[productID] = n
	}
	return items, nil
}

func (c *RedisCartCache) DeleteItems(ctx context.Context, cartID string) error {
	return pkgerrors.Wrap(c.client.GetClient().Del(ctx, itemsKey(cartID)).Err(), "delete cart items")
}

func (c *RedisCartCache) AddActive(ctx context.Context, cartID string) error {
	return pkgerrors.Wrap(c.client.GetClient().SAdd(ctx, activeSetKey, cartID).Err(), "add active cart")
}

func (c *RedisCartCache) RemoveActive(ctx context.Context, cartID string) error {
	return pkgerrors.Wrap(c.client.GetClient().SRem(ctx, activeSetKey, cartID).Err(), "remove active cart")
}

func (c *RedisCartCache) ActiveCartIDs(ctx context.Context) ([]string, error) {
	ids, err := c.client.GetClient().SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list active carts")
	}
	return ids, nil
}

var _ domain.CartCache = (*RedisCartCache)(nil)
