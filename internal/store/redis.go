package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the recent-scan activity feed and the health probe.
// Neither is on the scan critical path, so a slow or absent Redis must
// never hold up a verification.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with aggressive timeouts. Feed writes are fire and
// forget; a blocked write here would stall the scanner kiosk for no
// benefit.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		DialTimeout:     time.Second,
		ReadTimeout:     500 * time.Millisecond,
		WriteTimeout:    500 * time.Millisecond,
		MaxRetries:      1,
		MinIdleConns:    1,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	return &Redis{Client: client}
}

// Healthy reports whether the feed backend answers a ping. A nil
// receiver counts as unhealthy so /healthz can run without Redis
// configured.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
