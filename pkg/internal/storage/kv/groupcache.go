package kv

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

// GroupcacheKV 基于 groupcache 的 KV 实现.
// 本地写入保存在 data 中并以其为准；本地未命中且配置了对等节点时，
// 通过 group 向持有该键的节点读取.
type GroupcacheKV struct {
	group *groupcache.Group
	data  map[string][]byte
	mu    sync.RWMutex
	peers bool
}

var (
	groupcacheMu      sync.Mutex
	groupcacheStores  = map[string]*GroupcacheKV{}
	groupcachePool    *groupcache.HTTPPool
	groupcachePoolSet sync.Once
)

// NewGroupcacheKV 创建 Groupcache KV 实例；同名 group 在进程内只创建一次.
func NewGroupcacheKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	gcConfig := cfg.Groupcache
	if gcConfig.Name == "" {
		return nil, fmt.Errorf("groupcache name is required")
	}

	groupcacheMu.Lock()
	defer groupcacheMu.Unlock()

	if existing, ok := groupcacheStores[gcConfig.Name]; ok {
		return existing, nil
	}

	kv := &GroupcacheKV{data: make(map[string][]byte)}
	kv.group = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, groupcache.GetterFunc(kv.load))

	if len(gcConfig.Peers) > 0 {
		groupcachePoolSet.Do(func() {
			groupcachePool = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		})
		groupcachePool.Set(gcConfig.Peers...)

		kv.peers = true
	}

	groupcacheStores[gcConfig.Name] = kv

	return kv, nil
}

// load 是 group 的 getter，远端节点向本节点取值时调用.
func (g *GroupcacheKV) load(_ context.Context, key string, dest groupcache.Sink) error {
	g.mu.RLock()
	value, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return notFound(key)
	}

	return dest.SetBytes(value)
}

func (g *GroupcacheKV) raw(ctx context.Context, key string) ([]byte, bool) {
	g.mu.RLock()
	value, exists := g.data[key]
	g.mu.RUnlock()

	if exists {
		return value, true
	}

	if !g.peers {
		return nil, false
	}

	var remote []byte
	if err := g.group.Get(ctx, key, groupcache.AllocatingByteSliceSink(&remote)); err != nil {
		return nil, false
	}

	return remote, true
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := g.raw(ctx, key)
	if !ok {
		return nil, notFound(key)
	}

	val, expired, err := decodeWithTTL(value, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)
		return nil, notFound(key)
	}

	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTL(value, ttl, time.Now())
	if err != nil {
		return err
	}

	data := make([]byte, len(encoded))
	copy(data, encoded)

	g.mu.Lock()
	g.data[key] = data
	g.mu.Unlock()

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.Get(ctx, key)
	return err == nil, nil
}

// Keys 获取本地持有的匹配键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))

	for key, value := range g.data {
		if _, expired, err := decodeWithTTL(value, now); err != nil || expired {
			continue
		}

		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Close 关闭缓存（groupcache 没有显式的关闭方法）.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
