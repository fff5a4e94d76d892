package analysis

// englishStopwords 常见英文停用词.
var englishStopwords = set(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "that'll", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having", "do",
	"does", "did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
	"as", "until", "while", "of", "at", "by", "for", "with", "about", "against",
	"between", "into", "through", "during", "before", "after", "above", "below",
	"to", "from", "up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how", "all",
	"any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t",
	"can", "will", "just", "don", "don't", "should", "should've", "now", "d", "ll",
	"m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't",
	"haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't", "mustn",
	"mustn't", "needn", "needn't", "shan", "shan't", "shouldn", "shouldn't",
	"wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn", "wouldn't",
)

// contractions 英文缩写.
var contractions = set(
	"ain't", "aren't", "can't", "could've", "couldn't", "didn't", "doesn't", "don't",
	"hasn't", "he'd", "he'll", "he's", "here's", "how'd", "how'll", "how's", "i'd",
	"i'll", "i'm", "i've", "isn't", "it's", "might've", "mightn't", "must've",
	"mustn't", "shan't", "she'd", "she'll", "she's", "should've", "shouldn't",
	"that'll", "that's", "there's", "they'd", "they'll", "they're", "they've",
	"wasn't", "we'd", "we'll", "we're", "weren't", "what'd", "what's", "when",
	"when'd", "when'll", "when's", "where'd", "where'll", "where's", "who'd",
	"who'll", "who's", "why'd", "why'll", "why's", "won't", "would've", "wouldn't",
	"y'all", "you'd", "you'll", "you're", "you've",
)

// twitterStops 推文中常见但无意义的记号.
var twitterStops = set(
	"rt", "ff", "&", "+", "w", "re", "cc", "et", "al", "…", "u", "via",
	"a.m.", "p.m.", "@", "-", "–", "—", "|", "Ŧ",
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}

	return m
}
