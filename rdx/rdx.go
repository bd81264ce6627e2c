package rdx

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Init connects to redis. The cache is best-effort: callers must tolerate a
// nil Conn when redis is unavailable.
func Init() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Conn.Ping(ctx).Err(); err != nil {
		log.Printf("rdx: redis unreachable at %s: %v", addr, err)
		return err
	}
	return nil
}

// Cache adapts the shared connection to the read-through cache used by the
// dashboard aggregator.
type Cache struct{}

func (Cache) Get(ctx context.Context, key string) (string, bool) {
	if Conn == nil {
		return "", false
	}
	val, err := Conn.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if Conn == nil {
		return
	}
	if err := Conn.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Println("rdx: cache set failed:", err)
	}
}
