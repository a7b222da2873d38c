package config

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing the occupancy
// cache, the catalog response cache and the rate limiter. The address
// comes from REDIS_HOST+REDIS_PORT, falling back to REDIS_ADDR and then
// localhost:6379; REDIS_PASSWORD, REDIS_DB and REDIS_TLS are optional.
//
// A nil return means Redis did not answer a ping within two seconds.
// Callers treat that as a degraded mode (no caches, no rate limiting)
// rather than refusing to boot: none of the Redis-backed features are
// load-bearing for correctness, only for load.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}

	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
