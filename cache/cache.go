package cache

import (
	"log"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Cache is a thin redis wrapper used for short-lived dashboard statistics.
// A nil *Cache is valid and behaves as a permanent miss, so callers never
// need to branch on whether redis is configured.
type Cache struct {
	pool *redis.Pool
}

// New builds a cache backed by a redis pool. Returns nil when url is
// empty, which disables caching entirely.
func New(url string) *Cache {
	if url == "" {
		return nil
	}

	pool := &redis.Pool{
		MaxIdle:     10,
		MaxActive:   50,
		IdleTimeout: 300 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	return &Cache{pool: pool}
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if err != redis.ErrNil {
			log.Printf("[cache] GET %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

// Set stores a value with a TTL. Failures are logged, not returned; the
// cache is advisory.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", key, value, "EX", int(ttl.Seconds())); err != nil {
		log.Printf("[cache] SET %s: %v", key, err)
	}
}

// Delete removes a key, used to invalidate stats after a mutation.
func (c *Cache) Delete(key string) {
	if c == nil {
		return
	}
	conn := c.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", key); err != nil {
		log.Printf("[cache] DEL %s: %v", key, err)
	}
}
