package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	"github.com/yeisme/tweetfreq/pkg/types"
)

func TestNormalizeWord(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello!", "hello"},
		{"\"Quoted\"", "quoted"},
		{"it’s", "it's"},
		{"&amp;", "&"},
		{"(word)", "word"},
		{":-)", ":-)"},
		{"(:", "("},
		{":)", ":)"},
		{"a.m.", "a.m."},
		{"U.S.", "u.s."},
		{"end...", "end"},
		{"“fancy”", "fancy"},
		{"«guillemets»", "guillemets"},
		{"...", ""},
	}

	for _, tc := range cases {
		if got := NormalizeWord(tc.in); got != tc.want {
			t.Errorf("NormalizeWord(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWordsFiltersStopwords(t *testing.T) {
	got := Words("RT @jack: The 2 cats can't stop via http://t.co", "Cats! and dogs... &amp; birds")
	want := []string{"@jack", "cats", "stop", "http://t.co", "cats", "dogs", "birds"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %q, want %q", got, want)
	}
}

func TestCountOrdering(t *testing.T) {
	counts := Count([]string{"b", "a", "b", "c", "a", "d"})

	want := []Counted[string]{{"b", 2}, {"a", 2}, {"c", 1}, {"d", 1}}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("Count = %v", counts)
	}

	if got := ByCount(Count([]string{"x", "y", "y", "z", "z", "z"}), 2); !reflect.DeepEqual(got, []Counted[string]{{"z", 3}, {"y", 2}}) {
		t.Fatalf("ByCount = %v", got)
	}

	if got := ByKey(counts); got[0].Key != "a" || got[3].Key != "d" {
		t.Fatalf("ByKey = %v", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		3:          "3",
		1234567:    "1,234,567",
		10.0 / 3.0: "3.333",
		2.5:        "2.5",
		1234.5678:  "1,234.568",
	}

	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuild(t *testing.T) {
	timeline := []twitter.Tweet{
		{ID: 5, Text: "Cats everywhere", CreatedAt: "Sun Jan 05 10:00:00 +0000 2020"},
		{ID: 4, Text: "cats again", CreatedAt: "Sun Jan 05 09:00:00 +0000 2020"},
		{ID: 3, Text: "dogs", CreatedAt: "Wed Jan 01 23:00:00 +0000 2020"},
		{ID: 2, Text: "cats and dogs", CreatedAt: "Wed Jan 01 12:00:00 +0000 2020"},
		{ID: 1, Text: "first", CreatedAt: "Wed Jan 01 08:00:00 +0000 2020"},
	}

	now := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)

	r, err := Build("jack", timeline, Options{WordLimit: 300, Now: now, TTL: time.Hour})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantDates := []types.DateCount{{Date: "2020-01-01", Count: 3}, {Date: "2020-01-05", Count: 2}}
	if !reflect.DeepEqual(r.Dates, wantDates) {
		t.Errorf("dates = %v", r.Dates)
	}

	if r.Words[0] != (types.WordCount{Word: "cats", Count: 3}) || r.Words[1] != (types.WordCount{Word: "dogs", Count: 2}) {
		t.Errorf("words = %v", r.Words)
	}

	if r.Stats.Total.Formatted != "5" || r.Stats.AvgPerDay.Formatted != "2.5" || r.Stats.MaxPerDay.Value != 3 {
		t.Errorf("stats = %+v", r.Stats)
	}

	if r.Start.ID != 1 || r.End.ID != 5 {
		t.Errorf("start/end = %d/%d", r.Start.ID, r.End.ID)
	}

	if !r.Expires.Equal(now.Add(time.Hour)) || r.Users[0] != "jack" {
		t.Errorf("expires/users = %v %v", r.Expires, r.Users)
	}
}

func TestBuildEmptyTimeline(t *testing.T) {
	if _, err := Build("jack", nil, Options{}); err != twitter.ErrNoTweets {
		t.Fatalf("expected ErrNoTweets, got %v", err)
	}
}
