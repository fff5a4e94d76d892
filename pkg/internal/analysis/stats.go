package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	"github.com/yeisme/tweetfreq/pkg/types"
)

// DateLayout dates 中的日期格式.
const DateLayout = "2006-01-02"

// Options 计算参数.
type Options struct {
	WordLimit int
	Now       time.Time
	TTL       time.Duration
}

// FormatNumber 千位分隔，最多保留 3 位小数.
func FormatNumber(v float64) string {
	return humanize.Commaf(math.Round(v*1000) / 1000)
}

// Build 根据时间线（最新在前）生成用户统计负载.
func Build(user string, timeline []twitter.Tweet, opts Options) (*types.UserReport, error) {
	if len(timeline) == 0 {
		return nil, twitter.ErrNoTweets
	}

	days := make([]string, 0, len(timeline))
	texts := make([]string, 0, len(timeline))

	for _, tw := range timeline {
		ts, err := tw.Time()
		if err != nil {
			return nil, err
		}

		days = append(days, ts.Format(DateLayout))
		texts = append(texts, tw.Body())
	}

	start, err := ref(timeline[len(timeline)-1])
	if err != nil {
		return nil, err
	}

	end, err := ref(timeline[0])
	if err != nil {
		return nil, err
	}

	dateCounts := ByKey(Count(days))
	wordCounts := ByCount(Count(Words(texts...)), opts.WordLimit)

	total := len(timeline)
	maxPerDay := 0

	dates := make([]types.DateCount, 0, len(dateCounts))
	for _, d := range dateCounts {
		dates = append(dates, types.DateCount{Date: d.Key, Count: d.Count})
		maxPerDay = max(maxPerDay, d.Count)
	}

	words := make([]types.WordCount, 0, len(wordCounts))
	for _, w := range wordCounts {
		words = append(words, types.WordCount{Word: w.Key, Count: w.Count})
	}

	avg := float64(total) / float64(len(dates))

	now := opts.Now.UTC()

	return &types.UserReport{
		Stats: types.Stats{
			Total:     types.Number{Value: float64(total), Formatted: humanize.Comma(int64(total))},
			AvgPerDay: types.Number{Value: avg, Formatted: FormatNumber(avg)},
			MaxPerDay: types.Number{Value: float64(maxPerDay), Formatted: humanize.Comma(int64(maxPerDay))},
		},
		Start:       start,
		End:         end,
		Created:     now,
		Expires:     now.Add(opts.TTL),
		Dates:       dates,
		Words:       words,
		Users:       []string{user},
		SearchTerms: []string{},
	}, nil
}

func ref(tw twitter.Tweet) (types.TweetRef, error) {
	ts, err := tw.Time()
	if err != nil {
		return types.TweetRef{}, fmt.Errorf("tweet reference: %w", err)
	}

	return types.TweetRef{ID: tw.ID, Timestamp: ts}, nil
}
