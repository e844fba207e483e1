package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MimeLyc/srt-translator/internal/metrics"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Cached stores successful translations in Redis keyed by language pair and text.
// Redis failures are logged and fall through to the wrapped backend.
type Cached struct {
	next   translator.Backend
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCached connects to Redis and wraps next.
func NewCached(next translator.Backend, opts *redis.Options, ttl time.Duration, prefix string) (*Cached, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cached{next: next, client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *Cached) Close() error {
	return c.client.Close()
}

func (c *Cached) Translate(ctx context.Context, text string, req translator.Request) (string, error) {
	key := c.key(text, req)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.RecordCacheAccess(true)
		return cached, nil
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheAccess(false)
	default:
		log.Warn("Translation cache read failed: %v", err)
	}

	out, err := c.next.Translate(ctx, text, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return out, nil
	}

	if err := c.client.Set(ctx, key, out, c.ttl).Err(); err != nil {
		log.Warn("Translation cache write failed: %v", err)
	}
	return out, nil
}

func (c *Cached) key(text string, req translator.Request) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:%s:%s",
		c.prefix,
		strings.ToLower(req.SourceLanguage),
		strings.ToLower(req.TargetLanguage),
		hex.EncodeToString(sum[:]))
}
