// Package cache keeps recent chain reads so repeated lookups of the same
// account do not hit a node. Entries expire on a TTL and are dropped
// explicitly after a broadcast touches them.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/config"
	"github.com/abcfe/hive-wallet/hive"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type QueryCache struct {
	lru *expirable.LRU[string, interface{}]
}

func New(size int, ttl time.Duration) *QueryCache {
	return &QueryCache{lru: expirable.NewLRU[string, interface{}](size, nil, ttl)}
}

func NewFromConfig(cfg *config.Config) *QueryCache {
	return New(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSec)*time.Second)
}

func (c *QueryCache) Get(key string) (interface{}, bool) {
	return c.lru.Get(key)
}

func (c *QueryCache) Set(key string, v interface{}) {
	c.lru.Add(key, v)
}

func (c *QueryCache) Invalidate(keys ...string) {
	for _, k := range keys {
		if c.lru.Remove(k) {
			logger.Debug("cache invalidated: ", k)
		}
	}
}

// InvalidatePrefix drops every key starting with prefix.
func (c *QueryCache) InvalidatePrefix(prefix string) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			n++
		}
	}
	return n
}

func (c *QueryCache) Len() int {
	return c.lru.Len()
}

// AccountSource is the uncached account lookup, usually a *hive.Client.
type AccountSource interface {
	GetAccount(ctx context.Context, username string) (*hive.Account, error)
}

// AccountCache is an AccountSource that remembers successful lookups.
// Misses and errors are never cached.
type AccountCache struct {
	src   AccountSource
	cache *QueryCache
}

func NewAccountCache(src AccountSource, cache *QueryCache) *AccountCache {
	return &AccountCache{src: src, cache: cache}
}

func AccountKey(username string) string {
	return prt.PrefixCacheAccount + username
}

func (a *AccountCache) GetAccount(ctx context.Context, username string) (*hive.Account, error) {
	key := AccountKey(username)
	if v, ok := a.cache.Get(key); ok {
		if acc, ok := v.(*hive.Account); ok {
			return acc, nil
		}
	}
	acc, err := a.src.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	a.cache.Set(key, acc)
	return acc, nil
}
