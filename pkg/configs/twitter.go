package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTwitterAPIBase   = "https://api.twitter.com/1.1"
	DefaultTwitterTokenURL  = "https://api.twitter.com/oauth2/token"
	DefaultTwitterTimeout   = 20   // 单次请求超时（秒）
	DefaultTwitterPageSize  = 200  // 每页推文数
	DefaultTwitterMaxTweets = 3200 // user_timeline 可回溯的上限
)

// TwitterConfig Twitter REST API 配置.
// 应用令牌通过 `tweetfreq twitter init` 写入 KV，这里的 key/secret 仅作为默认值.
type TwitterConfig struct {
	APIBase     string `mapstructure:"api_base"     rule:"required,url"`
	TokenURL    string `mapstructure:"token_url"    rule:"required,url"`
	AppKey      string `mapstructure:"app_key"`
	AppSecret   string `mapstructure:"app_secret"`
	BearerToken string `mapstructure:"bearer_token"`
	Timeout     int    `mapstructure:"timeout"      rule:"min=1,max=300"`
	PageSize    int    `mapstructure:"page_size"    rule:"min=1,max=200"`
	MaxTweets   int    `mapstructure:"max_tweets"   rule:"min=1,max=3200"`
	UserAgent   string `mapstructure:"user_agent"`
}

// GetTimeout 返回请求超时.
func (c *TwitterConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *TwitterConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("twitter.api_base", DefaultTwitterAPIBase)
	v.SetDefault("twitter.token_url", DefaultTwitterTokenURL)
	v.SetDefault("twitter.app_key", "")
	v.SetDefault("twitter.app_secret", "")
	v.SetDefault("twitter.bearer_token", "")
	v.SetDefault("twitter.timeout", DefaultTwitterTimeout)
	v.SetDefault("twitter.page_size", DefaultTwitterPageSize)
	v.SetDefault("twitter.max_tweets", DefaultTwitterMaxTweets)
	v.SetDefault("twitter.user_agent", "TweetFreq/"+AppVersion)
}
