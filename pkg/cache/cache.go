// Package cache 提供基于键值存储的泛型缓存，状态记录、Twitter 令牌与限流信息都通过它读写.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore, "tweetfreq")
//
//	err := cache.Set(ctx, c, "user.jack", status, time.Hour)
//	status, err := cache.Get[types.StatusResponse](ctx, c, "user.jack")
//
// 键会加上命名空间前缀，例如 "tweetfreq.user.jack".
// 值使用 sonic 编码为 JSON.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中.
var ErrMiss = kv.ErrKeyNotFound

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// NewCache 创建一个新的缓存实例，prefix 为空时不加命名空间.
func NewCache(kvStore kv.KVStore, prefix string) *Cache {
	return &Cache{kvStore: kvStore, prefix: prefix}
}

// Key 返回带命名空间的完整键.
func (c *Cache) Key(key string) string {
	if c.prefix == "" {
		return key
	}

	return c.prefix + "." + key
}

// Store 返回底层 KV 存储.
func (c *Cache) Store() kv.KVStore {
	return c.kvStore
}

// Get 泛型获取缓存值，未命中时返回的错误满足 errors.Is(err, ErrMiss).
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.Key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.Key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.Key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.Key(key))
}

// GetOrSet 获取缓存值，未命中时调用 getter 并写回；写回失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	value, err := Get[T](ctx, c, key)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, ErrMiss) {
		var zero T
		return zero, err
	}

	if value, err = getter(); err != nil {
		var zero T
		return zero, err
	}

	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// Keys 列出命名空间下匹配 pattern 的键（不含前缀）.
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.kvStore.Keys(ctx, c.Key(pattern))
	if err != nil {
		return nil, err
	}

	if c.prefix == "" {
		return keys, nil
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(c.prefix)+1:])
	}

	return out, nil
}
