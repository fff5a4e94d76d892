package types

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestPairWireFormat(t *testing.T) {
	r := UserReport{
		Dates: []DateCount{{"2020-01-01", 3}, {"2020-01-05", 7}},
		Words: []WordCount{{"cat", 5}, {"dog", 2}},
	}

	b, err := sonic.Marshal(struct {
		Dates []DateCount `json:"dates"`
		Words []WordCount `json:"words"`
	}{r.Dates, r.Words})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"dates":[["2020-01-01",3],["2020-01-05",7]],"words":[["cat",5],["dog",2]]}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestDecodeStatusWithPayload(t *testing.T) {
	body := `{"status":"done","header":"","message":"","code":200,
		"data":{"stats":{"total":{"value":10,"formatted":"10"}},
		"dates":[["2020-01-01",3]],"words":[["cat",5.0]],"users":["jack"],"search_terms":[]}}`

	var resp StatusResponse
	if err := sonic.UnmarshalString(body, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Status != StatusDone || resp.Status.Pending() || resp.Data == nil {
		t.Fatalf("resp = %+v", resp)
	}

	if resp.Data.Dates[0] != (DateCount{Date: "2020-01-01", Count: 3}) || resp.Data.Words[0] != (WordCount{Word: "cat", Count: 5}) {
		t.Fatalf("pairs = %+v %+v", resp.Data.Dates, resp.Data.Words)
	}
}

func TestDecodePairErrors(t *testing.T) {
	cases := []string{
		`["2020-01-01"]`, `{"date":"x"}`, `[1, 2]`, `["x", "y"]`,
		`["2020-01-01", 2.9]`, `["2020-01-01", 1e30]`, `["2020-01-01", -1]`,
	}

	for _, c := range cases {
		var d DateCount
		if err := d.UnmarshalJSON([]byte(c)); err == nil {
			t.Errorf("%s: expected error", c)
		}
	}
}

func TestDecodePairCount(t *testing.T) {
	var w WordCount
	if err := w.UnmarshalJSON([]byte(`["cat", 42 ]`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if w.Word != "cat" || w.Count != 42 {
		t.Errorf("word = %+v", w)
	}

	var big WordCount
	if err := big.UnmarshalJSON([]byte(`["x", 1e30]`)); err == nil {
		t.Errorf("1e30 decoded as %d", big.Count)
	}
}

func TestPending(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, "pending"} {
		if !s.Pending() {
			t.Errorf("%s should be pending", s)
		}
	}

	for _, s := range []Status{StatusDone, StatusError} {
		if s.Pending() {
			t.Errorf("%s should not be pending", s)
		}
	}
}
