// Package analysis 从时间线计算词频、每日推文数与汇总统计.
package analysis

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	leadingPunct  = "\"'\\/“"
	trailingPunct = "?!.,:;-\"'/\\”"
	// 长度大于 3 的词不太可能是表情，额外去掉括号.
	leadingBrackets  = "([{}<«"
	trailingBrackets = ")]}>»"

	endingExceptions = set("a.m.", "p.m.", "u.s.")
)

// NormalizeWord 小写化并去掉首尾标点.
func NormalizeWord(word string) string {
	word = strings.ToLower(word)
	word = strings.ReplaceAll(word, "’", "'")

	leading, trailing := leadingPunct, trailingPunct
	if utf8.RuneCountInString(word) > 3 {
		leading += leadingBrackets
		trailing += trailingBrackets
	}

	word = html.UnescapeString(word)
	word = strings.TrimLeft(word, leading)

	if _, ok := endingExceptions[word]; !ok {
		word = strings.TrimRight(word, trailing)
	}

	return word
}

// IsUseful 过滤数字、停用词、缩写与 Twitter 记号.
func IsUseful(word string) bool {
	if r, _ := utf8.DecodeRuneInString(word); unicode.IsDigit(r) {
		return false
	}

	for _, stops := range []map[string]struct{}{englishStopwords, contractions, twitterStops} {
		if _, ok := stops[word]; ok {
			return false
		}
	}

	return true
}

// Words 按空白切分文本并返回有意义的词（含重复，保持出现顺序）.
func Words(texts ...string) []string {
	var words []string

	for _, text := range texts {
		for _, w := range strings.Fields(text) {
			w = NormalizeWord(w)
			if w == "" || !IsUseful(w) {
				continue
			}

			words = append(words, w)
		}
	}

	return words
}
