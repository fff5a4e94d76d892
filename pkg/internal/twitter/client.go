// Package twitter 是 Twitter REST v1.1 的应用级（bearer token）客户端.
//
// 只实现分析所需的接口：users/show、statuses/user_timeline、
// application/rate_limit_status 与 oauth2/token。限流信息与令牌保存在 KV 中，
// 以便 server 与 worker 多进程共享.
package twitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/metrics"
	"github.com/yeisme/tweetfreq/pkg/tracing"
)

// Client Twitter API 客户端，可并发使用.
type Client struct {
	http      *http.Client
	cfg       configs.TwitterConfig
	store     *cache.Cache
	breaker   *gobreaker.CircuitBreaker
	clock     clockwork.Clock
	logger    *zerolog.Logger
	userAgent string
}

// Option 配置 Client.
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithClock 替换时钟.
func WithClock(clock clockwork.Clock) Option { return func(c *Client) { c.clock = clock } }

// New 创建客户端，store 用于保存令牌与限流信息.
func New(cfg configs.TwitterConfig, cb configs.CircuitBreakerConfig, store *cache.Cache, opts ...Option) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = configs.DefaultTwitterPageSize
	}

	if cfg.MaxTweets <= 0 {
		cfg.MaxTweets = configs.DefaultTwitterMaxTweets
	}

	c := &Client{
		http:      &http.Client{Timeout: cfg.GetTimeout()},
		cfg:       cfg,
		store:     store,
		breaker:   newBreaker(cb),
		clock:     clockwork.NewRealClock(),
		logger:    log.Component("twitter"),
		userAgent: cfg.UserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// response 是一次已读取完毕的 HTTP 响应.
type response struct {
	status int
	header http.Header
	body   []byte
}

// get 以 bearer token 发起 GET 请求，resource 用于限流记录与指标.
func (c *Client) get(ctx context.Context, resource, endpoint string, query url.Values) (*response, error) {
	ctx, span := tracing.StartSpan(ctx, "twitter "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("twitter.resource", resource)))
	defer span.End()

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	u := strings.TrimRight(c.cfg.APIBase, "/") + "/" + endpoint + ".json"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.do(req, resource)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.status))
	c.saveHeaders(ctx, resource, resp.header)

	return resp, nil
}

// do 经过熔断器执行请求；网络错误与 5xx 计入失败.
func (c *Client) do(req *http.Request, resource string) (*response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		r := &response{status: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, &APIError{Endpoint: resource, Status: resp.StatusCode, Body: truncate(body)}
		}

		return r, nil
	})

	if r, ok := out.(*response); ok && r != nil {
		metrics.TwitterCalls.WithLabelValues(resource, strconv.Itoa(r.status)).Inc()
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("twitter %s: %w", resource, err)
		}

		return nil, err
	}

	return out.(*response), nil
}

// decode 解码 JSON 响应体.
func decode(r *response, v any) error {
	if err := sonic.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decode twitter response: %w", err)
	}

	return nil
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}

	return string(b)
}

// now 当前时间.
func (c *Client) now() time.Time { return c.clock.Now() }
