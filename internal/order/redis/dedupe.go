package redis

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Dedupe is a fast-path replay guard for webhook deliveries, keyed by the
// provider event id. It is advisory only: the conditional status update in
// the order store is what actually makes confirmation idempotent, so a Redis
// outage degrades to reprocessing, never to a double transition.
type Dedupe struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewDedupe(client *redis.Client) *Dedupe {
	return &Dedupe{
		Client: client,
		Logger: log.Default(),
	}
}

func (r *Dedupe) getEventTTL() time.Duration {
	// Stripe retries failed deliveries for up to three days.
	defaultTTL := 72 * time.Hour

	ttlStr := os.Getenv("WEBHOOK_DEDUPE_TTL_HOURS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlHours, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid WEBHOOK_DEDUPE_TTL_HOURS value '" + ttlStr + "', using default 72 hours")
		return defaultTTL
	}
	return time.Duration(ttlHours) * time.Hour
}

// MarkEventProcessed records a provider event id. Returns false if the id was
// already recorded, meaning this delivery is a replay.
func (r *Dedupe) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	key := "webhook_event:" + eventID
	return r.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), r.getEventTTL()).Result()
}

// UnmarkEvent forgets a provider event id after a delivery failed
// mid-processing, so the provider's retry is not skipped as a replay.
func (r *Dedupe) UnmarkEvent(ctx context.Context, eventID string) error {
	return r.Client.Del(ctx, "webhook_event:"+eventID).Err()
}
