package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
)

// fakeTwitter 模拟一个拥有 total 条推文（id 从 total 递减到 1）的用户.
type fakeTwitter struct {
	total         int
	timelineCode  int
	showCode      int
	remaining     int
	timelineCalls atomic.Int32
}

func (f *fakeTwitter) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, code int, v any) {
		b, _ := sonic.Marshal(v)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Rate-Limit-Limit", "900")
		w.Header().Set("X-Rate-Limit-Remaining", strconv.Itoa(f.remaining))
		w.Header().Set("X-Rate-Limit-Reset", "1700000000")
		w.WriteHeader(code)
		_, _ = w.Write(b)
	}

	mux.HandleFunc("/users/show.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token")
		}

		if f.showCode != 0 {
			writeJSON(w, f.showCode, map[string]any{"errors": []any{}})
			return
		}

		writeJSON(w, http.StatusOK, User{ID: 1, ScreenName: r.URL.Query().Get("screen_name"), StatusesCount: f.total})
	})

	mux.HandleFunc("/statuses/user_timeline.json", func(w http.ResponseWriter, r *http.Request) {
		f.timelineCalls.Add(1)

		if f.timelineCode != 0 {
			writeJSON(w, f.timelineCode, map[string]any{"error": "Not authorized."})
			return
		}

		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		maxID := int64(f.total)

		if v := r.URL.Query().Get("max_id"); v != "" {
			maxID, _ = strconv.ParseInt(v, 10, 64)
		}

		page := []Tweet{}
		for id := maxID; id >= 1 && len(page) < count; id-- {
			page = append(page, Tweet{
				ID:        id,
				Text:      fmt.Sprintf("tweet %d", id),
				CreatedAt: "Wed Aug 27 13:08:45 +0000 2008",
			})
		}

		writeJSON(w, http.StatusOK, page)
	})

	mux.HandleFunc("/application/rate_limit_status.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"resources": map[string]any{
				"statuses": map[string]any{
					ResourceUserTimeline: map[string]any{"limit": 900, "remaining": 880, "reset": 1700000000},
				},
				"users": map[string]any{
					ResourceUsersShow: map[string]any{"limit": 900, "remaining": 899, "reset": 1700000000},
				},
			},
		})
	})

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		if !ok || key != "app" || secret != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}

		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer", "access_token": "test-token"})
	})

	return mux
}

func newTestClient(t *testing.T, f *fakeTwitter, token string) (*Client, *cache.Cache) {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	clock := clockwork.NewFakeClockAt(time.Unix(1699999000, 0))
	store := cache.NewCache(kv.NewMemoryKVWithClock(clock), "tweetfreq")

	cfg := configs.TwitterConfig{
		APIBase:     srv.URL,
		TokenURL:    srv.URL + "/oauth2/token",
		BearerToken: token,
		Timeout:     5,
		PageSize:    200,
		MaxTweets:   3200,
	}

	return New(cfg, configs.CircuitBreakerConfig{}, store, WithClock(clock)), store
}

func TestTimelineCalls(t *testing.T) {
	cases := []struct {
		count, want int
	}{
		{0, 2},
		{100, 3},
		{200, 3},
		{201, 3},
		{450, 4},
		{3200, 17},
		{50000, 17},
	}

	for _, tc := range cases {
		if got := TimelineCalls(tc.count, 200, 3200); got != tc.want {
			t.Errorf("TimelineCalls(%d) = %d, want %d", tc.count, got, tc.want)
		}
	}
}

func TestFullTimelinePaging(t *testing.T) {
	f := &fakeTwitter{total: 450, remaining: 100}
	c, _ := newTestClient(t, f, "test-token")

	tweets, err := c.FullTimeline(context.Background(), "@jack")
	if err != nil {
		t.Fatalf("FullTimeline: %v", err)
	}

	if len(tweets) != 450 {
		t.Fatalf("got %d tweets, want 450", len(tweets))
	}

	for i, tw := range tweets {
		if want := int64(450 - i); tw.ID != want {
			t.Fatalf("tweets[%d].ID = %d, want %d", i, tw.ID, want)
		}
	}

	// 200 + 199 + 51 + 空页
	if got := f.timelineCalls.Load(); got != 4 {
		t.Errorf("timeline calls = %d, want 4", got)
	}

	remaining, known, _ := c.RemainingCalls(context.Background(), ResourceUserTimeline)
	if !known || remaining != 100 {
		t.Errorf("remaining = %d (known=%v)", remaining, known)
	}
}

func TestFullTimelineRateLimited(t *testing.T) {
	f := &fakeTwitter{total: 3000, remaining: 5}
	c, store := newTestClient(t, f, "test-token")
	ctx := context.Background()

	_ = cache.Set(ctx, store, resourceKey(ResourceUserTimeline), RateLimit{Resource: ResourceUserTimeline, Limit: 900, Remaining: 5}, 0)

	if _, err := c.FullTimeline(ctx, "jack"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if f.timelineCalls.Load() != 0 {
		t.Error("no timeline call expected when calls are insufficient")
	}
}

func TestFullTimelineErrors(t *testing.T) {
	cases := []struct {
		name string
		f    *fakeTwitter
		want error
	}{
		{"protected", &fakeTwitter{total: 10, remaining: 10, timelineCode: http.StatusUnauthorized}, ErrProtected},
		{"not found", &fakeTwitter{total: 10, remaining: 10, showCode: http.StatusNotFound}, ErrNotFound},
		{"no tweets", &fakeTwitter{total: 0, remaining: 10}, ErrNoTweets},
		{"too many requests", &fakeTwitter{total: 10, remaining: 0, timelineCode: http.StatusTooManyRequests}, ErrRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, tc.f, "test-token")

			if _, err := c.FullTimeline(context.Background(), "jack"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestInitStoresTokenAndLimits(t *testing.T) {
	f := &fakeTwitter{total: 1, remaining: 1}
	c, _ := newTestClient(t, f, "")
	ctx := context.Background()

	if _, err := c.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if err := c.Init(ctx, "app", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := c.Init(ctx, " app ", "secret"); err != nil {
		t.Fatalf("init: %v", err)
	}

	token, err := c.Token(ctx)
	if err != nil || token != "test-token" {
		t.Fatalf("token = %q, %v", token, err)
	}

	limits, err := c.Limits(ctx)
	if err != nil {
		t.Fatalf("limits: %v", err)
	}

	got := map[string]int{}
	for _, l := range limits {
		got[l.Resource] = l.Remaining
	}

	if got[ResourceUserTimeline] != 880 || got[ResourceUsersShow] != 899 {
		t.Fatalf("limits = %+v", limits)
	}

	reset, err := c.NextReset(ctx)
	if err != nil || reset.Unix() != 1700000000 {
		t.Fatalf("reset = %v, %v", reset, err)
	}
}

func TestTweetTime(t *testing.T) {
	ts, err := Tweet{ID: 1, CreatedAt: "Wed Aug 27 13:08:45 +0000 2008"}.Time()
	if err != nil {
		t.Fatal(err)
	}

	if want := time.Date(2008, 8, 27, 13, 8, 45, 0, time.UTC); !ts.Equal(want) {
		t.Fatalf("time = %v", ts)
	}

	if _, err := (Tweet{CreatedAt: "yesterday"}).Time(); err == nil {
		t.Fatal("expected parse error")
	}
}
