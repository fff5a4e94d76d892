package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/metrics"
)

const (
	ResourceUserTimeline = "/statuses/user_timeline"
	ResourceUsersShow    = "/users/show/:id"
	ResourceRateLimit    = "/application/rate_limit_status"

	keyReset = "twitter.reset"
)

// RateLimit 单个资源的限流状态.
type RateLimit struct {
	Resource  string `json:"resource"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// resourceKey 把 "/users/show/:id" 转成 KV 友好的 "users.show.id".
func resourceKey(resource string) string {
	r := strings.TrimPrefix(resource, "/")
	r = strings.ReplaceAll(r, ":", "")

	return "twitter." + strings.ReplaceAll(r, "/", ".")
}

// saveHeaders 记录响应中的限流头.
func (c *Client) saveHeaders(ctx context.Context, resource string, h http.Header) {
	limit, errL := strconv.Atoi(h.Get("X-Rate-Limit-Limit"))
	remaining, errR := strconv.Atoi(h.Get("X-Rate-Limit-Remaining"))

	if errL == nil && errR == nil {
		c.storeLimit(ctx, RateLimit{Resource: resource, Limit: limit, Remaining: remaining})
	}

	if reset, err := strconv.ParseInt(h.Get("X-Rate-Limit-Reset"), 10, 64); err == nil {
		if err := cache.Set(ctx, c.store, keyReset, reset, 0); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to store rate limit reset")
		}
	}
}

func (c *Client) storeLimit(ctx context.Context, rl RateLimit) {
	if err := cache.Set(ctx, c.store, resourceKey(rl.Resource), rl, 0); err != nil {
		c.logger.Warn().Err(err).Str("resource", rl.Resource).Msg("Failed to store rate limit")
		return
	}

	if rl.Resource == ResourceUserTimeline {
		metrics.TwitterRemaining.Set(float64(rl.Remaining))
	}
}

// RemainingCalls 返回资源的剩余调用次数；尚无记录时 known 为 false.
func (c *Client) RemainingCalls(ctx context.Context, resource string) (remaining int, known bool, err error) {
	rl, err := cache.Get[RateLimit](ctx, c.store, resourceKey(resource))
	if errors.Is(err, cache.ErrMiss) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	return rl.Remaining, true, nil
}

// requireCalls 剩余次数已知且小于 n 时返回 ErrRateLimited.
func (c *Client) requireCalls(ctx context.Context, resource string, n int) error {
	remaining, known, err := c.RemainingCalls(ctx, resource)
	if err != nil {
		return err
	}

	if known && remaining < n {
		return ErrRateLimited
	}

	return nil
}

// NextReset 返回下一次限流重置时间，已过期时先刷新.
func (c *Client) NextReset(ctx context.Context) (time.Time, error) {
	reset, err := c.storedReset(ctx)
	if err == nil && reset.After(c.now()) {
		return reset, nil
	}

	if err := c.RefreshRateLimits(ctx); err != nil {
		return time.Time{}, err
	}

	return c.storedReset(ctx)
}

func (c *Client) storedReset(ctx context.Context) (time.Time, error) {
	sec, err := cache.Get[int64](ctx, c.store, keyReset)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(sec, 0).UTC(), nil
}

// RefreshRateLimits 拉取 application/rate_limit_status 并保存全部资源的限流.
func (c *Client) RefreshRateLimits(ctx context.Context) error {
	resp, err := c.get(ctx, ResourceRateLimit, "application/rate_limit_status", url.Values{})
	if err != nil {
		return err
	}

	if resp.status != http.StatusOK {
		return &APIError{Endpoint: ResourceRateLimit, Status: resp.status, Body: truncate(resp.body)}
	}

	var body struct {
		Resources map[string]map[string]struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"resources"`
	}
	if err := decode(resp, &body); err != nil {
		return err
	}

	var latestReset int64

	for _, family := range body.Resources {
		for resource, v := range family {
			c.storeLimit(ctx, RateLimit{Resource: resource, Limit: v.Limit, Remaining: v.Remaining})

			if v.Reset > latestReset {
				latestReset = v.Reset
			}
		}
	}

	if resp.header.Get("X-Rate-Limit-Reset") == "" && latestReset > 0 {
		if err := cache.Set(ctx, c.store, keyReset, latestReset, 0); err != nil {
			return err
		}
	}

	c.logger.Debug().Int("families", len(body.Resources)).Msg("Refreshed Twitter rate limits")

	return nil
}

// Limits 返回已记录的限流信息，按资源名排序.
func (c *Client) Limits(ctx context.Context) ([]RateLimit, error) {
	keys, err := c.store.Keys(ctx, "twitter.*")
	if err != nil {
		return nil, err
	}

	out := make([]RateLimit, 0, len(keys))

	for _, k := range keys {
		if k == keyReset || k == keyAppKey || k == keyAccessToken {
			continue
		}

		rl, err := cache.Get[RateLimit](ctx, c.store, k)
		if err != nil {
			continue
		}

		out = append(out, rl)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })

	return out, nil
}
