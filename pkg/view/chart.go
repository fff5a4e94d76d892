package view

import (
	"errors"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/yeisme/tweetfreq/pkg/report"
)

// ErrEmptyChart 没有可绘制的数据点.
var ErrEmptyChart = errors.New("view: chart has no valid points")

var tweetColor = drawing.ColorFromHex("1da1f2")

// ChartPNG 将图表描述渲染为 PNG，忽略日期无效的数据点.
func ChartPNG(spec report.ChartSpec, w io.Writer, width, height int) error {
	var (
		xs   []time.Time
		ys   []float64
		maxY = 1.0
	)

	for _, s := range spec.Series {
		for _, p := range s.Data {
			if !p.Valid() {
				continue
			}

			xs = append(xs, p.Time())
			ys = append(ys, float64(p.Y))
			maxY = max(maxY, float64(p.Y))
		}
	}

	if len(xs) == 0 {
		return ErrEmptyChart
	}

	// 单点时补齐前后一天，go-chart 要求 x 范围非零
	if len(xs) == 1 {
		day := 24 * time.Hour
		xs = []time.Time{xs[0].Add(-day), xs[0], xs[0].Add(day)}
		ys = []float64{0, ys[0], 0}
	}

	graph := chart.Chart{
		Title:      spec.Title.Text,
		TitleStyle: chart.Style{FontSize: 12},
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           spec.XAxis.Title.Text,
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  spec.YAxis.Title.Text,
			Range: &chart.ContinuousRange{Min: 0, Max: maxY},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: seriesName(spec),
				Style: chart.Style{
					StrokeColor: tweetColor,
					StrokeWidth: 1,
					FillColor:   tweetColor.WithAlpha(64),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	return graph.Render(chart.PNG, w)
}

func seriesName(spec report.ChartSpec) string {
	if len(spec.Series) == 0 {
		return ""
	}

	return spec.Series[0].Name
}
