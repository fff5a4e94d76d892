package analysis

import (
	"cmp"
	"slices"
)

// Counted 元素及其出现次数.
type Counted[K cmp.Ordered] struct {
	Key   K
	Count int
}

// Count 统计每个元素的出现次数，结果保持首次出现的顺序.
func Count[K cmp.Ordered](items []K) []Counted[K] {
	index := make(map[K]int, len(items))
	out := make([]Counted[K], 0)

	for _, item := range items {
		if i, ok := index[item]; ok {
			out[i].Count++
			continue
		}

		index[item] = len(out)
		out = append(out, Counted[K]{Key: item, Count: 1})
	}

	return out
}

// ByCount 按次数降序排序（次数相同保持原顺序），limit>0 时截断.
func ByCount[K cmp.Ordered](counts []Counted[K], limit int) []Counted[K] {
	out := slices.Clone(counts)
	slices.SortStableFunc(out, func(a, b Counted[K]) int { return cmp.Compare(b.Count, a.Count) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// ByKey 按元素升序排序.
func ByKey[K cmp.Ordered](counts []Counted[K]) []Counted[K] {
	out := slices.Clone(counts)
	slices.SortStableFunc(out, func(a, b Counted[K]) int { return cmp.Compare(a.Key, b.Key) })

	return out
}
