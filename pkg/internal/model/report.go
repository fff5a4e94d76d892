// Package model 定义报告归档的 GORM 模型.
package model

import "time"

// Report 一次完成的统计结果，每个用户可有多条（按时间）.
type Report struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// ULID，同时作为对象存储中快照的文件名
	ReportID  string  `gorm:"size:26;uniqueIndex"  json:"report_id"`
	User      string  `gorm:"size:32;index"        json:"user"`
	Total     int     `json:"total"`
	AvgPerDay float64 `json:"avg_per_day"`
	MaxPerDay int     `json:"max_per_day"`
	// 推文覆盖的区间
	FirstTweetAt time.Time `json:"first_tweet_at"`
	LastTweetAt  time.Time `json:"last_tweet_at"`
	TopWord      string    `gorm:"size:255" json:"top_word"`
	// 对象存储中的完整快照，未启用 s3 时为空
	ObjectKey string    `gorm:"size:512"   json:"object_key,omitempty"`
	ExpiresAt time.Time `gorm:"index"      json:"expires_at"`
	CreatedAt time.Time `gorm:"index"      json:"created_at"`
}

// AllModels 需要迁移的模型.
func AllModels() []any {
	return []any{&Report{}}
}
