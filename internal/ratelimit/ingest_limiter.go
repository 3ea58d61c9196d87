package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boxlane/boxlane/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyWebhookEndpoint = "ingest:webhook:endpoint"
	keyWebhookClient   = "ingest:webhook:client:%s"
	keyCarrierSyncLock = "ingest:sync:lock:%s"
)

// IngestLimiter throttles the schedule webhook and serializes carrier syncs
// across instances. A nil limiter is valid and allows everything, so the
// whole feature stays optional behind RATE_LIMIT_ENABLED.
type IngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	endpointRate  float64
	endpointBurst int
	clientRate    float64
	clientBurst   int
	syncLockTTL   time.Duration
}

func NewIngestLimiter(cfg config.Config) (*IngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.WebhookRate <= 0 || limitCfg.WebhookBurst <= 0 {
		return nil, errors.New("webhook rate limit must be positive")
	}
	if limitCfg.WebhookClientRate <= 0 || limitCfg.WebhookClientBurst <= 0 {
		return nil, errors.New("webhook per-client rate limit must be positive")
	}
	if limitCfg.SyncLockTTLSeconds <= 0 {
		return nil, errors.New("sync lock ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &IngestLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		locker:        NewLocker(client),
		endpointRate:  limitCfg.WebhookRate,
		endpointBurst: limitCfg.WebhookBurst,
		clientRate:    limitCfg.WebhookClientRate,
		clientBurst:   limitCfg.WebhookClientBurst,
		syncLockTTL:   time.Duration(limitCfg.SyncLockTTLSeconds) * time.Second,
	}, nil
}

func (l *IngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowWebhook checks the shared endpoint bucket for one inbound schedule
// message.
func (l *IngestLimiter) AllowWebhook(ctx context.Context) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, keyWebhookEndpoint, l.endpointRate, l.endpointBurst)
}

// AllowWebhookClient checks the per-sender bucket, keyed by whatever client
// identity the caller has (normally the remote IP).
func (l *IngestLimiter) AllowWebhookClient(ctx context.Context, clientKey string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhookClient, strings.TrimSpace(clientKey)), l.clientRate, l.clientBurst)
}

// TryLockCarrierSync guards against a manual sync trigger overlapping the
// scheduler (or another instance) on the same carrier.
func (l *IngestLimiter) TryLockCarrierSync(ctx context.Context, carrierName string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyCarrierSyncLock, strings.ToUpper(strings.TrimSpace(carrierName)))
	return l.locker.TryLock(ctx, key, l.syncLockTTL)
}

func (l *IngestLimiter) ReleaseCarrierSync(ctx context.Context, carrierName, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyCarrierSyncLock, strings.ToUpper(strings.TrimSpace(carrierName)))
	return l.locker.Release(ctx, key, token)
}
