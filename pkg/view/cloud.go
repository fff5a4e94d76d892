package view

import "github.com/yeisme/tweetfreq/pkg/types"

// CloudWord 词云中的一个词，Weight 取 1..5.
type CloudWord struct {
	Text   string
	Count  int
	Weight int
}

// Cloud 按词频线性分配权重，limit<=0 表示不限制.
func Cloud(words []types.WordCount, limit int) []CloudWord {
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}

	if len(words) == 0 {
		return nil
	}

	lo, hi := words[0].Count, words[0].Count
	for _, w := range words[1:] {
		lo = min(lo, w.Count)
		hi = max(hi, w.Count)
	}

	out := make([]CloudWord, len(words))
	for i, w := range words {
		weight := 3
		if hi > lo {
			weight = 1 + (w.Count-lo)*4/(hi-lo)
		}

		out[i] = CloudWord{Text: w.Word, Count: w.Count, Weight: weight}
	}

	return out
}
