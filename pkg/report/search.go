package report

import (
	"net/url"
	"strings"
)

// 与 encodeURIComponent 不同，url.QueryEscape 会转义这些字符.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent 按 URI 组件规则编码 s，空格编码为 %20.
func EncodeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// SearchURL 拼接搜索地址.
func SearchURL(base, query string) string {
	return base + EncodeComponent(query)
}

// PeriodQuery 返回某个时间段内用户推文的查询，until 为空时只限制起点.
func PeriodQuery(user, since, until string) string {
	q := "from:" + user + " since:" + since
	if until != "" {
		q += " until:" + until
	}

	return q
}

// TermQuery 返回用户包含某个词的推文查询.
func TermQuery(user, term string) string {
	return "from:" + user + " " + term
}
