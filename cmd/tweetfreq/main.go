// Package main 启动 tweetfreq 命令行
package main

import (
	"os"

	"github.com/yeisme/tweetfreq/pkg/cmd"
)

//	@title			TweetFreq API
//	@version		1.0
//	@description	TweetFreq 统计 Twitter 用户的发推频率与常用词，提供状态轮询接口、报告页面与归档查询。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
