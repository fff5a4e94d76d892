package types

import (
	"time"

	"github.com/yeisme/tweetfreq/pkg/internal/model"
	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	"github.com/yeisme/tweetfreq/pkg/scheduler"
)

// RecentReportsRequest 最近报告查询参数.
type RecentReportsRequest struct {
	User  string `form:"user"  rule:"omitempty,max=16,screen_name"`
	Limit int    `form:"limit" rule:"omitempty,min=1,max=100"`
}

// ReportSummary 归档报告摘要.
type ReportSummary struct {
	ReportID     string    `json:"report_id"`
	User         string    `json:"user"`
	Total        int       `json:"total"`
	AvgPerDay    float64   `json:"avg_per_day"`
	MaxPerDay    int       `json:"max_per_day"`
	TopWord      string    `json:"top_word,omitempty"`
	FirstTweetAt time.Time `json:"first_tweet_at"`
	LastTweetAt  time.Time `json:"last_tweet_at"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	// HasSnapshot 是否可以通过 /api/v1/reports/:id 取回完整统计
	HasSnapshot bool `json:"has_snapshot"`
}

// NewReportSummary 从归档记录构造摘要.
func NewReportSummary(r model.Report) ReportSummary {
	return ReportSummary{
		ReportID:     r.ReportID,
		User:         r.User,
		Total:        r.Total,
		AvgPerDay:    r.AvgPerDay,
		MaxPerDay:    r.MaxPerDay,
		TopWord:      r.TopWord,
		FirstTweetAt: r.FirstTweetAt,
		LastTweetAt:  r.LastTweetAt,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		HasSnapshot:  r.ObjectKey != "",
	}
}

// RecentReportsResponse 最近报告列表.
type RecentReportsResponse struct {
	Reports []ReportSummary `json:"reports"`
}

// JobsResponse 定时任务列表.
type JobsResponse struct {
	Jobs []scheduler.JobInfo `json:"jobs"`
}

// RateLimitsResponse Twitter 限流信息.
type RateLimitsResponse struct {
	Limits []twitter.RateLimit `json:"limits"`
}
