package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	"github.com/yeisme/tweetfreq/pkg/queue"
	"github.com/yeisme/tweetfreq/pkg/types"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*message.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.msgs = append(p.msgs, msgs...)

	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.msgs)
}

type fakeTimeline struct {
	tweets []twitter.Tweet
	err    error
	reset  time.Time
	calls  int
	during func()
}

func (f *fakeTimeline) FullTimeline(context.Context, string) ([]twitter.Tweet, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}

	return f.tweets, f.err
}

func (f *fakeTimeline) NextReset(context.Context) (time.Time, error) { return f.reset, nil }

type fakeArchive struct{ saved []*types.UserReport }

func (a *fakeArchive) Save(_ context.Context, r *types.UserReport) (string, error) {
	a.saved = append(a.saved, r)
	return "01ARCHIVE", nil
}

func testConfig() configs.AnalysisConfig {
	return configs.AnalysisConfig{
		WordLimit:    300,
		CacheHours:   1,
		QueueSettle:  500 * time.Millisecond,
		RetrieveTTL:  2 * time.Minute,
		ProcessTTL:   10 * time.Minute,
		NotFoundTTL:  5 * time.Minute,
		OverloadTTL:  2 * time.Second,
		LookupFlight: true,
	}
}

type fixture struct {
	svc   *StatusService
	store *cache.Cache
	clock *clockwork.FakeClock
	pub   *recordingPublisher
	tl    *fakeTimeline
	arch  *fakeArchive
}

func newFixture() *fixture {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 1, 6, 12, 0, 0, 0, time.UTC))
	store := cache.NewCache(kv.NewMemoryKVWithClock(clock), "tweetfreq")
	f := &fixture{store: store, clock: clock, pub: &recordingPublisher{}, tl: &fakeTimeline{}, arch: &fakeArchive{}}
	f.svc = NewStatusService(store, f.pub, f.tl, testConfig(), WithClock(clock), WithArchive(f.arch))

	return f
}

func (f *fixture) record(t *testing.T, name string) (types.StatusResponse, bool) {
	t.Helper()

	rec, ok, err := f.svc.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	return rec, ok
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"@Jack", "jack", true},
		{" TweetFreq_1 ", "tweetfreq_1", true},
		{"", "", false},
		{"@", "", false},
		{"this_name_is_too_long", "", false},
		{"bad name", "", false},
	}

	for _, tc := range cases {
		got, err := NormalizeName(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("NormalizeName(%q) = %q, %v", tc.in, got, err)
		}

		if !tc.ok && !errors.Is(err, ErrInvalidName) {
			t.Errorf("NormalizeName(%q) expected ErrInvalidName, got %v", tc.in, err)
		}
	}
}

func TestLookupQueuesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	type result struct {
		rec types.StatusResponse
		err error
	}

	done := make(chan result, 1)

	go func() {
		rec, err := f.svc.Lookup(ctx, "@Jack")
		done <- result{rec, err}
	}()

	if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(500 * time.Millisecond)

	res := <-done
	if res.err != nil {
		t.Fatalf("lookup: %v", res.err)
	}

	want := types.NewStatus(types.StatusQueued, HeaderQueued, MessageQueued, 200)
	if res.rec.Status != want.Status || res.rec.Header != want.Header || res.rec.Message != want.Message {
		t.Fatalf("record = %+v", res.rec)
	}

	if f.pub.count() != 1 {
		t.Fatalf("published %d messages, want 1", f.pub.count())
	}

	env, err := queue.ParseUserLoadRequested(f.pub.msgs[0])
	if err != nil || env.Payload.Name != "jack" || env.Payload.RequestID == "" {
		t.Fatalf("payload = %+v, %v", env.Payload, err)
	}

	// 已有记录时直接返回，不再排队也不等待
	if _, err := f.svc.Lookup(ctx, "jack"); err != nil {
		t.Fatal(err)
	}

	if f.pub.count() != 1 {
		t.Fatalf("second lookup published again")
	}
}

func TestLookupPublishFailure(t *testing.T) {
	f := newFixture()
	f.pub.err = errors.New("broker down")

	rec, err := f.svc.Lookup(context.Background(), "jack")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if rec.Status != types.StatusError || rec.Code != 500 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestLookupInvalidName(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Lookup(context.Background(), "no spaces allowed"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestLoadSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = cache.Set(ctx, f.store, recordKey("jack"), types.NewStatus(types.StatusQueued, HeaderQueued, MessageQueued, 200), time.Hour)

	f.tl.tweets = []twitter.Tweet{
		{ID: 2, Text: "cats and dogs", CreatedAt: "Sun Jan 05 10:00:00 +0000 2020"},
		{ID: 1, Text: "cats", CreatedAt: "Wed Jan 01 10:00:00 +0000 2020"},
	}

	var during types.StatusResponse
	f.tl.during = func() { during, _ = f.record(t, "jack") }

	rec, started, err := f.svc.Load(ctx, "jack")
	if err != nil || !started {
		t.Fatalf("load: started=%v err=%v", started, err)
	}

	if during.Status != types.StatusRunning || during.Header != HeaderRetrieving {
		t.Errorf("record while fetching = %+v", during)
	}

	if rec.Status != types.StatusDone || rec.Data == nil || rec.Data.Stats.Total.Value != 2 {
		t.Fatalf("final record = %+v", rec)
	}

	stored, ok := f.record(t, "jack")
	if !ok || stored.Status != types.StatusDone || len(stored.Data.Dates) != 2 {
		t.Fatalf("stored = %+v", stored)
	}

	if len(f.arch.saved) != 1 {
		t.Errorf("archived %d reports, want 1", len(f.arch.saved))
	}

	// 完成记录按 cache_hours 过期
	f.clock.Advance(time.Hour)

	if _, ok := f.record(t, "jack"); ok {
		t.Error("done record should expire after cache_hours")
	}
}

func TestLoadSkipsNonQueued(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = cache.Set(ctx, f.store, recordKey("jack"), types.NewStatus(types.StatusRunning, HeaderRetrieving, "", 200), time.Minute)

	rec, started, err := f.svc.Load(ctx, "jack")
	if err != nil || started {
		t.Fatalf("load: started=%v err=%v", started, err)
	}

	if rec.Header != HeaderRetrieving || f.tl.calls != 0 {
		t.Fatalf("rec=%+v calls=%d", rec, f.tl.calls)
	}
}

func TestForget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = cache.Set(ctx, f.store, recordKey("jack"), types.NewStatus(types.StatusDone, "", "", 200), time.Hour)

	if err := f.svc.Forget(ctx, "@Jack"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	if _, ok := f.record(t, "jack"); ok {
		t.Fatal("record still present")
	}

	if err := f.svc.Forget(ctx, "not a name"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		header  string
		message string
		code    int
		ttl     time.Duration
	}{
		{"protected", twitter.ErrProtected, HeaderProtected, MessageProtected, 403, 5 * time.Minute},
		{"not found", twitter.ErrNotFound, HeaderNotFound, MessageNotFound, 404, 5 * time.Minute},
		{"no tweets", twitter.ErrNoTweets, HeaderNoTweets, "", 404, 5 * time.Minute},
		{"rate limited", twitter.ErrRateLimited, HeaderExhausted, "TweetFreq is under a heavy load. Try again in 15 minutes.", 503, 2 * time.Second},
		{"unexpected", errors.New("boom"), HeaderFailed, "", 500, 2 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()

			f.tl.err = tc.err
			f.tl.reset = f.clock.Now().Add(15 * time.Minute)

			rec, started, err := f.svc.Load(ctx, "jack")
			if err != nil || !started {
				t.Fatalf("load: started=%v err=%v", started, err)
			}

			if rec.Status != types.StatusError || rec.Header != tc.header || rec.Message != tc.message || rec.Code != tc.code {
				t.Fatalf("record = %+v", rec)
			}

			f.clock.Advance(tc.ttl - time.Millisecond)

			if _, ok := f.record(t, "jack"); !ok {
				t.Fatal("error record expired too early")
			}

			f.clock.Advance(time.Millisecond)

			if _, ok := f.record(t, "jack"); ok {
				t.Fatal("error record should have expired")
			}
		})
	}
}

func TestHumanizeUntil(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := map[time.Duration]string{
		0:                "a moment",
		30 * time.Second: "30 seconds",
		15 * time.Minute: "15 minutes",
		time.Hour:        "1 hour",
		5 * time.Hour:    "5 hours",
	}

	for d, want := range cases {
		if got := HumanizeUntil(now, now.Add(d)); got != want {
			t.Errorf("HumanizeUntil(%v) = %q, want %q", d, got, want)
		}
	}
}
