// Package report 将用户统计负载转换为可展示的报告.
//
// Build 是纯转换，不产生副作用；Render 把构建好的报告依次推送给 View.
// 用户名始终作为参数传入.
package report

import (
	"errors"
	"time"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/types"
)

// ErrNoPayload 负载为空.
var ErrNoPayload = errors.New("report: nil payload")

// Summary 标量汇总.
type Summary struct {
	Total     string
	AvgPerDay string
	MaxPerDay string
	Start     time.Time
	End       time.Time
	Created   time.Time
	Expires   time.Time
}

// Link 带搜索地址的文本.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// DateRow 按天统计表的一行.
type DateRow struct {
	Date  Link `json:"date"`
	Count int  `json:"count"`
}

// TermRow 词频表的一行，Rank 从 1 开始.
type TermRow struct {
	Rank  int  `json:"rank"`
	Term  Link `json:"term"`
	Count int  `json:"count"`
}

// Report 渲染所需的全部内容.
type Report struct {
	User    string
	Summary Summary
	Dates   []DateRow
	Words   []types.WordCount
	Terms   []TermRow
	Chart   ChartSpec
}

// View 报告的输出目标.
type View interface {
	Summary(user string, s Summary)
	DateTable(rows []DateRow)
	WordCloud(words []types.WordCount)
	TermTable(rows []TermRow)
	Chart(spec ChartSpec)
}

type options struct {
	searchBase string
	subtitle   string
	maxZoom    time.Duration
}

// Option 配置 Build/Render.
type Option func(*options)

// WithSearchBase 替换搜索地址前缀.
func WithSearchBase(base string) Option {
	return func(o *options) {
		if base != "" {
			o.searchBase = base
		}
	}
}

// WithChartSubtitle 替换图表副标题.
func WithChartSubtitle(s string) Option {
	return func(o *options) {
		if s != "" {
			o.subtitle = s
		}
	}
}

// WithChartMaxZoom 替换时间轴的最大缩放范围.
func WithChartMaxZoom(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxZoom = d
		}
	}
}

// WithConfig 从配置中读取全部选项.
func WithConfig(cfg configs.ReportConfig) Option {
	return func(o *options) {
		WithSearchBase(cfg.SearchBase)(o)
		WithChartSubtitle(cfg.ChartSubtitle)(o)
		WithChartMaxZoom(cfg.ChartMaxZoom)(o)
	}
}

// Build 构建报告.
func Build(payload *types.UserReport, user string, opts ...Option) (*Report, error) {
	if payload == nil {
		return nil, ErrNoPayload
	}

	o := options{
		searchBase: configs.DefaultSearchBase,
		subtitle:   configs.DefaultChartSubtitle,
		maxZoom:    configs.DefaultChartMaxZoom,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Report{
		User: user,
		Summary: Summary{
			Total:     payload.Stats.Total.Formatted,
			AvgPerDay: payload.Stats.AvgPerDay.Formatted,
			MaxPerDay: payload.Stats.MaxPerDay.Formatted,
			Start:     payload.Start.Timestamp,
			End:       payload.End.Timestamp,
			Created:   payload.Created,
			Expires:   payload.Expires,
		},
		Dates: dateRows(payload.Dates, user, o.searchBase),
		Words: payload.Words,
		Terms: termRows(payload.Words, user, o.searchBase),
		Chart: buildChart(payload.Dates, user, o),
	}, nil
}

// Render 构建报告并推送给 v.
func Render(payload *types.UserReport, user string, v View, opts ...Option) error {
	r, err := Build(payload, user, opts...)
	if err != nil {
		return err
	}

	r.Apply(v)

	return nil
}

// Apply 依次推送汇总、按天表、词云、词频表和图表.
func (r *Report) Apply(v View) {
	v.Summary(r.User, r.Summary)
	v.DateTable(r.Dates)
	v.WordCloud(r.Words)
	v.TermTable(r.Terms)
	v.Chart(r.Chart)
}

func dateRows(dates []types.DateCount, user, base string) []DateRow {
	rows := make([]DateRow, 0, len(dates))

	for i, d := range dates {
		until := ""
		if i < len(dates)-1 {
			until = dates[i+1].Date
		}

		rows = append(rows, DateRow{
			Date:  Link{Text: d.Date, URL: SearchURL(base, PeriodQuery(user, d.Date, until))},
			Count: d.Count,
		})
	}

	return rows
}

func termRows(words []types.WordCount, user, base string) []TermRow {
	rows := make([]TermRow, 0, len(words))

	for i, w := range words {
		rows = append(rows, TermRow{
			Rank:  i + 1,
			Term:  Link{Text: w.Word, URL: SearchURL(base, TermQuery(user, w.Word))},
			Count: w.Count,
		})
	}

	return rows
}
