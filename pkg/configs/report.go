package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSearchBase    = "https://twitter.com/search?mode=realtime&q="
	DefaultChartSubtitle = "TweetFreq.net"
	DefaultChartMaxZoom  = 14 * 24 * time.Hour
)

// ReportConfig 报告渲染配置.
type ReportConfig struct {
	SearchBase    string        `mapstructure:"search_base"    rule:"required"`
	ChartSubtitle string        `mapstructure:"chart_subtitle"`
	ChartMaxZoom  time.Duration `mapstructure:"chart_max_zoom"`
	ChartWidth    int           `mapstructure:"chart_width"    rule:"min=100"`
	ChartHeight   int           `mapstructure:"chart_height"   rule:"min=100"`
	// CloudSize 词云与终端视图显示的词数.
	CloudSize int `mapstructure:"cloud_size" rule:"min=1"`
}

func (c *ReportConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("report.search_base", DefaultSearchBase)
	v.SetDefault("report.chart_subtitle", DefaultChartSubtitle)
	v.SetDefault("report.chart_max_zoom", DefaultChartMaxZoom.String())
	v.SetDefault("report.chart_width", 960)
	v.SetDefault("report.chart_height", 400)
	v.SetDefault("report.cloud_size", 50)
}
