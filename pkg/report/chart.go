package report

import (
	"time"

	"github.com/yeisme/tweetfreq/pkg/types"
)

// Text 标题类选项.
type Text struct {
	Text string `json:"text"`
}

// ChartOptions 图表整体选项.
type ChartOptions struct {
	ZoomType string `json:"zoomType"`
}

// XAxis 时间轴.
type XAxis struct {
	Type    string `json:"type"`
	MaxZoom int64  `json:"maxZoom"`
	Title   Text   `json:"title"`
}

// YAxis 数量轴.
type YAxis struct {
	Title Text `json:"title"`
	Min   int  `json:"min"`
}

// Tooltip 提示框.
type Tooltip struct {
	Shared bool `json:"shared"`
}

// Legend 图例.
type Legend struct {
	Enabled bool `json:"enabled"`
}

// Point 图表数据点，X 为 UTC 毫秒时间戳，日期无法解析时为 nil.
type Point struct {
	X *int64 `json:"x"`
	Y int    `json:"y"`
}

// Valid 报告 X 是否有效.
func (p Point) Valid() bool { return p.X != nil }

// Time 返回 X 对应的时间.
func (p Point) Time() time.Time {
	if p.X == nil {
		return time.Time{}
	}

	return time.UnixMilli(*p.X).UTC()
}

// Series 数据序列.
type Series struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Data []Point `json:"data"`
}

// ChartSpec 面积时序图的描述，可直接编码为 Highcharts 风格的选项.
type ChartSpec struct {
	Chart    ChartOptions `json:"chart"`
	Title    Text         `json:"title"`
	Subtitle Text         `json:"subtitle"`
	XAxis    XAxis        `json:"xAxis"`
	YAxis    YAxis        `json:"yAxis"`
	Tooltip  Tooltip      `json:"tooltip"`
	Legend   Legend       `json:"legend"`
	Series   []Series     `json:"series"`
}

// ChartTitle 图表标题.
func ChartTitle(user string) string {
	return "Tweet frequency per day for " + user
}

func buildChart(dates []types.DateCount, user string, o options) ChartSpec {
	points := make([]Point, 0, len(dates))
	for _, d := range dates {
		points = append(points, Point{X: epochMillis(d.Date), Y: d.Count})
	}

	return ChartSpec{
		Chart:    ChartOptions{ZoomType: "x"},
		Title:    Text{Text: ChartTitle(user)},
		Subtitle: Text{Text: o.subtitle},
		XAxis: XAxis{
			Type:    "datetime",
			MaxZoom: o.maxZoom.Milliseconds(),
			Title:   Text{Text: "Dates"},
		},
		YAxis:   YAxis{Title: Text{Text: "Number of tweets"}, Min: 1},
		Tooltip: Tooltip{Shared: true},
		Legend:  Legend{Enabled: false},
		Series:  []Series{{Type: "area", Name: "Tweets", Data: points}},
	}
}

// epochMillis 将 YYYY-MM-DD（或 RFC 3339 时间）解析为 UTC 毫秒，失败返回 nil.
func epochMillis(date string) *int64 {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, date); err == nil {
			ms := t.UTC().UnixMilli()
			return &ms
		}
	}

	return nil
}
