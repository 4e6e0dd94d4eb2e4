// Package cache mirrors the latest accepted sample into memcached so other
// processes can read it without calling the service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-uploader/internal/state"
)

const defaultKey = "weather-uploader:latest"

// MemcachedMirror stores the latest snapshot under a single key with no expiry.
type MemcachedMirror struct {
	client *memcache.Client
	key    string
}

// NewMemcachedMirror creates a MemcachedMirror. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero. An empty key uses
// "weather-uploader:latest".
func NewMemcachedMirror(addrs, key string, timeout time.Duration, maxIdleConns int) (*MemcachedMirror, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		return nil, fmt.Errorf("memcached: no server addresses in %q", addrs)
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultKey
	}
	return &MemcachedMirror{client: client, key: key}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Publish overwrites the mirrored snapshot.
func (c *MemcachedMirror) Publish(ctx context.Context, snap state.Snapshot) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memcached: encode snapshot: %w", err)
	}
	if err := c.client.Set(&memcache.Item{Key: c.key, Value: raw}); err != nil {
		return fmt.Errorf("memcached: set %s: %w", c.key, err)
	}
	return nil
}

// Latest reads the mirrored snapshot. Returns false, nil when nothing has been published.
func (c *MemcachedMirror) Latest(ctx context.Context) (state.Snapshot, bool, error) {
	if ctx.Err() != nil {
		return state.Snapshot{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return state.Snapshot{}, false, nil
		}
		return state.Snapshot{}, false, fmt.Errorf("memcached: get %s: %w", c.key, err)
	}
	var snap state.Snapshot
	if err := json.Unmarshal(item.Value, &snap); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("memcached: decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedMirror) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedMirror) Close() error {
	return c.client.Close()
}
