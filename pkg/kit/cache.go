package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResponseCache stores rendered GET responses keyed by request URI. Every
// Flush advances the generation; entries are stored under the generation
// observed before the response was rendered, so a response computed before a
// flush can never be read after it.
type ResponseCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Flush(ctx context.Context) error
}

// generationKey scopes key to gen.
func generationKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + ":" + key
}

type memEntry struct {
	val     []byte
	expires time.Time
}

type MemoryCache struct {
	mu  sync.Mutex
	ttl time.Duration
	gen uint64
	m   map[string]memEntry
	now func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, m: map[string]memEntry{}, now: time.Now}
}

func (c *MemoryCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.m, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.m {
		if !now.Before(e.expires) {
			delete(c.m, k)
		}
	}
	c.m[key] = memEntry{val: val, expires: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.m = map[string]memEntry{}
	return nil
}

// RedisCache keeps entries under prefix+"data:" and the flush generation in
// prefix+"gen", outside the data keyspace so a flush never resets it.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) dataKey(key string) string { return c.prefix + "data:" + key }

func (c *RedisCache) genKey() string { return c.prefix + "gen" }

func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.dataKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte) error {
	return c.client.Set(ctx, c.dataKey(key), val, c.ttl).Err()
}

// Flush bumps the generation first, which already hides every existing entry,
// then deletes the old entries.
func (c *RedisCache) Flush(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, c.dataKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type cachedResponse struct {
	Header map[string]string `json:"header"`
	Body   []byte            `json:"body"`
}

// cachedHeaders are replayed on a hit along with the body.
var cachedHeaders = []string{"Content-Type", "X-Total-Count"}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheResponses serves repeated GETs of the same URI from c. Only 200
// responses are stored. Cache backend failures degrade to a pass-through.
func CacheResponses(c ResponseCache, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			gen, err := c.Generation(r.Context())
			if err != nil {
				log.Warn("response cache generation failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			key := generationKey(gen, r.URL.RequestURI())

			raw, ok, err := c.Get(r.Context(), key)
			if err != nil {
				log.Warn("response cache get failed", zap.Error(err), zap.String("key", key))
			}
			if ok {
				var cr cachedResponse
				if err := json.Unmarshal(raw, &cr); err == nil {
					for k, v := range cr.Header {
						w.Header().Set(k, v)
					}
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write(cr.Body)
					return
				}
			}

			w.Header().Set("X-Cache", "MISS")
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}

			cr := cachedResponse{Header: map[string]string{}, Body: rec.buf.Bytes()}
			for _, h := range cachedHeaders {
				if v := w.Header().Get(h); v != "" {
					cr.Header[h] = v
				}
			}
			b, err := json.Marshal(cr)
			if err != nil {
				return
			}
			// Stored under gen: if a flush ran meanwhile, this entry is never
			// looked up again and expires with its TTL.
			if err := c.Set(r.Context(), key, b); err != nil {
				log.Warn("response cache set failed", zap.Error(err), zap.String("key", key))
			}
		})
	}
}
