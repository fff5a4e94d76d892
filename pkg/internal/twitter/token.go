package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yeisme/tweetfreq/pkg/cache"
)

const (
	keyAppKey      = "twitter.app_key"
	keyAccessToken = "twitter.access_token"
)

// Token 返回 bearer token：配置优先，其次为 KV 中保存的令牌.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.cfg.BearerToken != "" {
		return c.cfg.BearerToken, nil
	}

	token, err := cache.Get[string](ctx, c.store, keyAccessToken)
	if errors.Is(err, cache.ErrMiss) || (err == nil && token == "") {
		return "", ErrNoToken
	}

	return token, err
}

// Init 使用应用 key/secret 换取 bearer token 并保存，然后刷新限流信息.
func (c *Client) Init(ctx context.Context, appKey, appSecret string) error {
	appKey, appSecret = strings.TrimSpace(appKey), strings.TrimSpace(appSecret)

	token, err := c.obtainToken(ctx, appKey, appSecret)
	if err != nil {
		return err
	}

	if err := cache.Set(ctx, c.store, keyAppKey, appKey, 0); err != nil {
		return err
	}

	if err := cache.Set(ctx, c.store, keyAccessToken, token, 0); err != nil {
		return err
	}

	c.logger.Info().Msg("Twitter bearer token stored")

	return c.RefreshRateLimits(ctx)
}

func (c *Client) obtainToken(ctx context.Context, appKey, appSecret string) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	req.SetBasicAuth(url.QueryEscape(appKey), url.QueryEscape(appSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.do(req, "/oauth2/token")
	if err != nil {
		return "", err
	}

	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
		return "", ErrInvalidCredentials
	}

	if resp.status != http.StatusOK {
		return "", &APIError{Endpoint: "/oauth2/token", Status: resp.status, Body: truncate(resp.body)}
	}

	var body struct {
		TokenType   string `json:"token_type"`
		AccessToken string `json:"access_token"`
	}
	if err := decode(resp, &body); err != nil {
		return "", err
	}

	if !strings.EqualFold(body.TokenType, "bearer") || body.AccessToken == "" {
		return "", fmt.Errorf("%w: unexpected token type %q", ErrInvalidCredentials, body.TokenType)
	}

	return body.AccessToken, nil
}
