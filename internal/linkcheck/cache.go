package linkcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/coastalsim/docforge/internal/logfields"
)

const (
	cacheTTLValid  = 24 * time.Hour
	cacheTTLFailed = time.Hour
)

// CacheEntry is a stored external link check result.
type CacheEntry struct {
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	OK          bool      `json:"ok"`
	Reason      string    `json:"reason,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Cache stores external link check results between runs.
type Cache interface {
	Get(ctx context.Context, url string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry) error
	Valid(entry *CacheEntry) bool
	Close() error
}

// NATSCache backs the link cache with a NATS JetStream key-value bucket so
// repeated runs and parallel builders share results.
type NATSCache struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSCache connects to NATS and opens (or creates) the cache bucket.
func NewNATSCache(natsURL, bucket string) (*NATSCache, error) {
	if bucket == "" {
		return nil, errors.New("cache bucket name is required")
	}

	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "External link check cache",
			MaxBytes:    100 * 1024 * 1024,
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("create KV bucket: %w", err)
		}
	}

	slog.Info("Link cache ready", logfields.URL(natsURL), slog.String("bucket", bucket))
	return &NATSCache{conn: conn, kv: kv}, nil
}

func (c *NATSCache) Get(ctx context.Context, url string) (*CacheEntry, error) {
	entry, err := c.kv.Get(ctx, cacheKey(url))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	var cached CacheEntry
	if err := json.Unmarshal(entry.Value(), &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return &cached, nil
}

func (c *NATSCache) Set(ctx context.Context, entry *CacheEntry) error {
	entry.LastChecked = time.Now()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, cacheKey(entry.URL), data); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Valid reports whether an entry is still within its TTL. Failures age out
// faster so transient outages are retried.
func (c *NATSCache) Valid(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	ttl := cacheTTLValid
	if !entry.OK {
		ttl = cacheTTLFailed
	}
	return time.Since(entry.LastChecked) < ttl
}

func (c *NATSCache) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// cacheKey maps a URL onto the character set NATS KV keys allow.
func cacheKey(url string) string {
	out := make([]byte, 0, len(url))
	for i := 0; i < len(url); i++ {
		c := url[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '=', c == '.', c == '/':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
