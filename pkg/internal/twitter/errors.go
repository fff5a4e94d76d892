package twitter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 用户不存在.
	ErrNotFound = errors.New("twitter user not found")
	// ErrProtected 用户时间线受保护.
	ErrProtected = errors.New("twitter timeline is protected")
	// ErrRateLimited 剩余调用次数不足以完成请求.
	ErrRateLimited = errors.New("twitter rate limit exhausted")
	// ErrNoTweets 时间线为空.
	ErrNoTweets = errors.New("no tweets found")
	// ErrNoToken 尚未执行 `tweetfreq twitter init`.
	ErrNoToken = errors.New("twitter bearer token not configured, run `tweetfreq twitter init`")
	// ErrInvalidCredentials 应用 key/secret 无效.
	ErrInvalidCredentials = errors.New("application key and/or secret is invalid")
)

// APIError 非预期的 Twitter 响应.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter %s: unexpected status %d: %s", e.Endpoint, e.Status, e.Body)
}
