package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// Number 数值及其格式化文本.
type Number struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Stats 汇总统计.
type Stats struct {
	Total     Number `json:"total"`
	AvgPerDay Number `json:"avg_per_day"`
	MaxPerDay Number `json:"max_per_day"`
}

// TweetRef 指向时间线中的一条推文.
type TweetRef struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// DateCount 某天的推文数量，JSON 编码为 ["YYYY-MM-DD", count].
type DateCount struct {
	Date  string
	Count int
}

// WordCount 词频，JSON 编码为 [term, count].
type WordCount struct {
	Word  string
	Count int
}

// UserReport 用户统计负载，dates 从旧到新，words 按频次降序.
type UserReport struct {
	Stats       Stats       `json:"stats"`
	Start       TweetRef    `json:"start"`
	End         TweetRef    `json:"end"`
	Created     time.Time   `json:"created"`
	Expires     time.Time   `json:"expires"`
	Dates       []DateCount `json:"dates"`
	Words       []WordCount `json:"words"`
	Users       []string    `json:"users"`
	SearchTerms []string    `json:"search_terms"`
}

// MarshalJSON 编码为二元数组.
func (d DateCount) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([]any{d.Date, d.Count})
}

// UnmarshalJSON 解码二元数组.
func (d *DateCount) UnmarshalJSON(b []byte) error {
	return decodePair(b, &d.Date, &d.Count)
}

// MarshalJSON 编码为二元数组.
func (w WordCount) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([]any{w.Word, w.Count})
}

// UnmarshalJSON 解码二元数组.
func (w *WordCount) UnmarshalJSON(b []byte) error {
	return decodePair(b, &w.Word, &w.Count)
}

func decodePair(b []byte, key *string, count *int) error {
	var raw []json.RawMessage
	if err := sonic.Unmarshal(b, &raw); err != nil {
		return err
	}

	if len(raw) != 2 {
		return fmt.Errorf("expected a [key, count] pair, got %d elements", len(raw))
	}

	if err := sonic.Unmarshal(raw[0], key); err != nil {
		return fmt.Errorf("pair key: %w", err)
	}

	// 计数必须是非负整数字面量, 小数与越界值都视为坏数据
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw[1])), 10, 0)
	if err != nil {
		return fmt.Errorf("pair count %s: %w", raw[1], err)
	}

	if n < 0 {
		return fmt.Errorf("pair count %d is negative", n)
	}

	*count = int(n)

	return nil
}
