package twitter

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// createdAtLayout Twitter 的 created_at 格式.
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Tweet 时间线中的一条推文.
type Tweet struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	FullText  string `json:"full_text,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Time 解析 created_at，返回 UTC 时间.
func (t Tweet) Time() (time.Time, error) {
	ts, err := time.Parse(createdAtLayout, t.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("tweet %d: %w", t.ID, err)
	}

	return ts.UTC(), nil
}

// Body 返回推文正文.
func (t Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}

	return t.Text
}

// User users/show 返回的用户信息.
type User struct {
	ID            int64  `json:"id"`
	ScreenName    string `json:"screen_name"`
	StatusesCount int    `json:"statuses_count"`
	Protected     bool   `json:"protected"`
}

// TimelineCalls 计算抓取全部可用推文所需的 user_timeline 调用次数.
// 推文数受 maxTweets 限制；额外的调用用于确认时间线已到末尾.
func TimelineCalls(statusesCount, pageSize, maxTweets int) int {
	tweets := min(statusesCount, maxTweets)

	overhead := 1
	if tweets <= pageSize {
		overhead++
	}

	return int(math.Ceil(float64(tweets)/float64(pageSize))) + overhead
}

// ShowUser 查询用户信息.
func (c *Client) ShowUser(ctx context.Context, screenName string) (*User, error) {
	if err := c.requireCalls(ctx, ResourceUsersShow, 1); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, ResourceUsersShow, "users/show", url.Values{"screen_name": {screenName}})
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &APIError{Endpoint: ResourceUsersShow, Status: resp.status, Body: truncate(resp.body)}
	}

	var u User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// UserTimeline 获取一页推文；maxID>0 时只返回 id<=maxID 的推文.
func (c *Client) UserTimeline(ctx context.Context, screenName string, maxID int64) ([]Tweet, error) {
	q := url.Values{
		"screen_name": {screenName},
		"count":       {strconv.Itoa(c.cfg.PageSize)},
		"include_rts": {"true"},
	}
	if maxID > 0 {
		q.Set("max_id", strconv.FormatInt(maxID, 10))
	}

	resp, err := c.get(ctx, ResourceUserTimeline, "statuses/user_timeline", q)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrProtected
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &APIError{Endpoint: ResourceUserTimeline, Status: resp.status, Body: truncate(resp.body)}
	}

	var tweets []Tweet
	if err := decode(resp, &tweets); err != nil {
		return nil, err
	}

	return tweets, nil
}

// FullTimeline 获取用户全部可用推文（最新在前），最多 MaxTweets 条.
// 开始前检查剩余调用次数是否足够，不够时返回 ErrRateLimited.
func (c *Client) FullTimeline(ctx context.Context, screenName string) ([]Tweet, error) {
	screenName = strings.ReplaceAll(screenName, "@", "")

	user, err := c.ShowUser(ctx, screenName)
	if err != nil {
		return nil, err
	}

	needed := TimelineCalls(user.StatusesCount, c.cfg.PageSize, c.cfg.MaxTweets)
	if err := c.requireCalls(ctx, ResourceUserTimeline, needed); err != nil {
		return nil, err
	}

	tweets, err := c.UserTimeline(ctx, screenName, 0)
	if err != nil {
		return nil, err
	}

	if len(tweets) == 0 {
		return nil, ErrNoTweets
	}

	for len(tweets) < c.cfg.MaxTweets {
		if err := c.requireCalls(ctx, ResourceUserTimeline, 1); err != nil {
			return nil, err
		}

		older, err := c.UserTimeline(ctx, screenName, tweets[len(tweets)-1].ID)
		if err != nil {
			return nil, err
		}

		// max_id 包含自身，丢弃第一条
		if len(older) > 0 && older[0].ID == tweets[len(tweets)-1].ID {
			older = older[1:]
		}

		if len(older) == 0 {
			break
		}

		tweets = append(tweets, older...)
	}

	if len(tweets) > c.cfg.MaxTweets {
		tweets = tweets[:c.cfg.MaxTweets]
	}

	c.logger.Debug().Str("user", screenName).Int("tweets", len(tweets)).Msg("Fetched timeline")

	return tweets, nil
}
