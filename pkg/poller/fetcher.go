package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/yeisme/tweetfreq/pkg/types"
)

// HTTPFetcher 通过 HTTP GET 获取状态资源.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPFetcher 创建 HTTPFetcher，client 为 nil 时使用 http.DefaultClient.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPFetcher{Client: client, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch 实现 Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (*types.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}

	var status types.StatusResponse
	if err := sonic.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if status.Status == "" {
		return nil, fmt.Errorf("decode %s: missing status field", path)
	}

	return &status, nil
}

// StatusPath 返回用户状态资源的路径.
func StatusPath(user string) string {
	return "/u/" + user + ".json"
}
