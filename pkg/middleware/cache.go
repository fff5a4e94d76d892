package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/log"
)

const (
	defaultResponseTTL     = 30 * time.Second
	defaultMaxCachedBody   = 1 << 20
	responseKeyPrefix      = "http."
	headerCacheStatus      = "X-Cache"
	headerCacheBypass      = "X-Cache-Bypass"
	cacheStatusHit         = "HIT"
	cacheStatusMiss        = "MISS"
	cacheStoreTimeout      = 2 * time.Second
	headerContentType      = "Content-Type"
)

type responseCacheOptions struct {
	ttl     time.Duration
	maxBody int
	vary    []string
}

// CacheOption 响应缓存选项.
type CacheOption func(*responseCacheOptions)

// WithCacheTTL 设置缓存有效期.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *responseCacheOptions) { o.ttl = ttl }
}

// WithCacheMaxBody 超过 n 字节的响应不缓存.
func WithCacheMaxBody(n int) CacheOption {
	return func(o *responseCacheOptions) { o.maxBody = n }
}

// WithCacheVary 将指定请求头纳入缓存键.
func WithCacheVary(headers ...string) CacheOption {
	return func(o *responseCacheOptions) { o.vary = append(o.vary, headers...) }
}

// cachedResponse 缓存中保存的响应.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"`
}

// ResponseCache 缓存只读 GET/HEAD 接口的 200 响应.
//
// 命中时带 X-Cache: HIT 与 Age, If-None-Match 匹配时返回 304.
// 请求带 X-Cache-Bypass 或响应声明 no-store 时不走缓存, 缓存读写失败只降级为直接处理.
func ResponseCache(store *appcache.Cache, opts ...CacheOption) gin.HandlerFunc {
	o := responseCacheOptions{ttl: defaultResponseTTL, maxBody: defaultMaxCachedBody}
	for _, opt := range opts {
		opt(&o)
	}

	sort.Strings(o.vary)

	return func(c *gin.Context) {
		if store == nil || !cacheable(c) {
			c.Next()
			return
		}

		key := responseKey(c, o.vary)

		if hit, err := appcache.Get[cachedResponse](c.Request.Context(), store, key); err == nil {
			replay(c, hit)
			return
		}

		c.Header(headerCacheStatus, cacheStatusMiss)

		w := &captureWriter{ResponseWriter: c.Writer, limit: o.maxBody}
		c.Writer = w
		c.Next()

		if c.Writer.Status() != http.StatusOK || w.overflow || noStore(c.Writer.Header()) {
			return
		}

		entry := cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get(headerContentType),
			Body:        append([]byte(nil), w.buf.Bytes()...),
			ETag:        etagOf(w.buf.Bytes()),
			StoredAt:    time.Now().UnixNano(),
		}

		// 响应已写出, 写缓存不能再依赖请求上下文
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cacheStoreTimeout)
			defer cancel()

			if err := appcache.Set(ctx, store, key, entry, o.ttl); err != nil {
				log.Logger().Debug().Err(err).Str("key", key).Msg("response cache store failed")
			}
		}()
	}
}

func cacheable(c *gin.Context) bool {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
	default:
		return false
	}

	return c.GetHeader(headerCacheBypass) == ""
}

// responseKey 由路由模板, 排序后的查询参数与 vary 头计算.
func responseKey(c *gin.Context, vary []string) string {
	var b strings.Builder

	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	// 不含方法, HEAD 与 GET 共用缓存
	b.WriteString(path)

	if q := c.Request.URL.Query(); len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}

	for _, h := range vary {
		b.WriteByte('|')
		b.WriteString(h)
		b.WriteByte('=')
		b.WriteString(c.GetHeader(h))
	}

	return responseKeyPrefix + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

func replay(c *gin.Context, r cachedResponse) {
	h := c.Writer.Header()
	h.Set("ETag", r.ETag)
	h.Set("Age", strconv.FormatInt(int64(time.Since(time.Unix(0, r.StoredAt)).Seconds()), 10))
	h.Set(headerCacheStatus, cacheStatusHit)

	if r.ContentType != "" {
		h.Set(headerContentType, r.ContentType)
	}

	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == r.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	c.Status(r.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(r.Body)
	}

	c.Abort()
}

func noStore(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	return strings.Contains(cc, "no-store") || strings.Contains(cc, "private")
}

func etagOf(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// captureWriter 在写出响应的同时保留一份副本, 超出 limit 后放弃缓存.
type captureWriter struct {
	gin.ResponseWriter

	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
