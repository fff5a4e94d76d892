package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
	"github.com/yeisme/tweetfreq/pkg/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestResponseCache(t *testing.T) {
	store := cache.NewCache(kv.NewMemoryKVWithClock(clockwork.NewRealClock()), "tweetfreq")
	calls := 0

	r := gin.New()
	r.GET("/reports/recent", middleware.ResponseCache(store, middleware.WithCacheTTL(time.Minute)), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"reports": []string{"jack"}})
	})

	first := get(r, "/reports/recent", nil)
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: code=%d x-cache=%q", first.Code, first.Header().Get("X-Cache"))
	}

	// 缓存在后台写入
	var hit *httptest.ResponseRecorder

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hit = get(r, "/reports/recent", nil)
		if hit.Header().Get("X-Cache") == "HIT" {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	if hit.Header().Get("X-Cache") != "HIT" || hit.Body.String() != first.Body.String() {
		t.Fatalf("expected cached replay, got %q %q", hit.Header().Get("X-Cache"), hit.Body.String())
	}

	etag := hit.Header().Get("ETag")
	if nm := get(r, "/reports/recent", map[string]string{"If-None-Match": etag}); nm.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", nm.Code)
	}

	before := calls
	if b := get(r, "/reports/recent", map[string]string{"X-Cache-Bypass": "1"}); b.Header().Get("X-Cache") != "" || calls != before+1 {
		t.Fatalf("bypass should reach handler: x-cache=%q calls=%d", b.Header().Get("X-Cache"), calls)
	}
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	store := cache.NewCache(kv.NewMemoryKVWithClock(clockwork.NewRealClock()), "tweetfreq")
	calls := 0

	r := gin.New()
	r.GET("/reports/recent", middleware.ResponseCache(store), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
	})

	for range 3 {
		get(r, "/reports/recent", nil)
		time.Sleep(10 * time.Millisecond)
	}

	if calls != 3 {
		t.Fatalf("error responses must not be cached, calls=%d", calls)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2, Key: "ip"}))
	r.GET("/u/:name", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/health/kv", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, get(r, "/u/jack", nil).Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	if w := get(r, "/api/v1/health/kv", nil); w.Code != http.StatusOK {
		t.Fatalf("health should be exempt, got %d", w.Code)
	}

	// 按请求头区分时不同调用方互不影响
	r2 := gin.New()
	r2.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "header:X-Client"}))
	r2.GET("/u/:name", func(c *gin.Context) { c.Status(http.StatusOK) })

	if get(r2, "/u/jack", map[string]string{"X-Client": "a"}).Code != http.StatusOK ||
		get(r2, "/u/jack", map[string]string{"X-Client": "b"}).Code != http.StatusOK ||
		get(r2, "/u/jack", map[string]string{"X-Client": "a"}).Code != http.StatusTooManyRequests {
		t.Fatal("header keyed limiter mixed callers")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		if w := get(r, "/", nil); w.Code != http.StatusOK {
			t.Fatalf("got %d", w.Code)
		}
	}
}
