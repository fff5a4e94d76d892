package poller_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/tweetfreq/pkg/poller"
	"github.com/yeisme/tweetfreq/pkg/types"
)

type result struct {
	resp *types.StatusResponse
	err  error
}

type scriptedFetcher struct {
	mu      sync.Mutex
	results []result
	calls   chan string
}

func newScripted(results ...result) *scriptedFetcher {
	return &scriptedFetcher{results: results, calls: make(chan string, 32)}
}

func (f *scriptedFetcher) Fetch(_ context.Context, path string) (*types.StatusResponse, error) {
	f.mu.Lock()
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	f.calls <- path

	return r.resp, r.err
}

type recordingView struct {
	mu     sync.Mutex
	events []string
}

func (v *recordingView) add(e string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, e)
}

func (v *recordingView) StartSpinner()                { v.add("spinner:start") }
func (v *recordingView) StopSpinner()                 { v.add("spinner:stop") }
func (v *recordingView) SetStatus(header, msg string) { v.add("status:" + header + "|" + msg) }
func (v *recordingView) HideStatus()                  { v.add("status:hide") }
func (v *recordingView) ShowResults()                 { v.add("results:show") }

func (v *recordingView) Events() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.events...)
}

func status(s types.Status, header, msg string) result {
	resp := types.NewStatus(s, header, msg, 200)
	return result{resp: &resp}
}

func done(report *types.UserReport) result {
	resp := types.NewStatus(types.StatusDone, "Done", "", 200)
	resp.Data = report

	return result{resp: &resp}
}

func waitCall(t *testing.T, calls <-chan string) string {
	t.Helper()

	select {
	case p := <-calls:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return ""
	}
}

func noCall(t *testing.T, calls <-chan string) {
	t.Helper()

	select {
	case p := <-calls:
		t.Fatalf("unexpected fetch of %s", p)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPollWaitsOneIntervalBetweenRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	report := &types.UserReport{Stats: types.Stats{Total: types.Number{Value: 3, Formatted: "3"}}}
	f := newScripted(status(types.StatusQueued, "Queued", "Your request will be processed shortly"), done(report))
	v := &recordingView{}

	var completed []*types.UserReport
	p := poller.New(f, v, poller.WithClock(clock))
	task := p.Start(ctx, "/u/jack.json", func(r *types.UserReport) { completed = append(completed, r) })

	if got := waitCall(t, f.calls); got != "/u/jack.json" {
		t.Fatalf("path = %s", got)
	}

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}

	clock.Advance(499 * time.Millisecond)
	noCall(t, f.calls)

	clock.Advance(time.Millisecond)
	waitCall(t, f.calls)

	if err := task.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	if task.State() != poller.StateDone {
		t.Errorf("State() = %v", task.State())
	}

	if len(completed) != 1 || completed[0] != report {
		t.Fatalf("onComplete calls = %v", completed)
	}

	want := []string{
		"spinner:start",
		"status:Queued|Your request will be processed shortly",
		"status:hide",
		"results:show",
	}
	if got := v.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestPollStopsOnError(t *testing.T) {
	notFound := types.NewStatus(types.StatusError, "User not found", "The specified Twitter username does not exist", 404)
	f := newScripted(result{resp: &notFound})
	v := &recordingView{}

	called := false
	err := poller.New(f, v, poller.WithClock(clockwork.NewFakeClock())).
		Poll(context.Background(), "/u/nobody.json", func(*types.UserReport) { called = true })

	var se *poller.StatusError
	if !errors.As(err, &se) || se.Code != 404 || se.Header != "User not found" {
		t.Fatalf("err = %v", err)
	}

	if called {
		t.Error("onComplete called on error")
	}

	want := []string{
		"spinner:start",
		"status:User not found|The specified Twitter username does not exist",
		"spinner:stop",
	}
	if got := v.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	waitCall(t, f.calls)
	noCall(t, f.calls)
}

func TestPollTransportFailure(t *testing.T) {
	f := newScripted(result{err: errors.New("connection refused")})
	v := &recordingView{}

	p := poller.New(f, v, poller.WithClock(clockwork.NewFakeClock()))
	task := p.Start(context.Background(), "/u/jack.json", nil)

	if err := task.Wait(); !errors.Is(err, poller.ErrTransport) {
		t.Fatalf("err = %v", err)
	}

	if task.State() != poller.StateTransportFailure {
		t.Errorf("State() = %v", task.State())
	}

	events := v.Events()
	if events[len(events)-1] != "spinner:stop" {
		t.Errorf("events = %v", events)
	}
}

func TestPollDoneWithoutData(t *testing.T) {
	f := newScripted(status(types.StatusDone, "Done", ""))
	v := &recordingView{}

	called := false
	err := poller.New(f, v).Poll(context.Background(), "/u/jack.json", func(*types.UserReport) { called = true })

	if !errors.Is(err, poller.ErrMalformedPayload) {
		t.Fatalf("err = %v", err)
	}

	if called {
		t.Error("onComplete called without data")
	}
}

func TestCancelStopsPolling(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	f := newScripted(status(types.StatusRunning, "Running", "Retrieving tweets"))

	task := poller.New(f, &recordingView{}, poller.WithClock(clock)).Start(ctx, "/u/jack.json", nil)
	waitCall(t, f.calls)

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}

	task.Cancel()

	if err := task.Wait(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}

	if task.State() != poller.StateCancelled {
		t.Errorf("State() = %v", task.State())
	}

	clock.Advance(time.Second)
	noCall(t, f.calls)
}

func TestHTTPFetcherPollsUntilDone(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/u/jack.json" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch hits.Add(1) {
		case 1:
			fmt.Fprint(w, `{"status":"queued","header":"Queued","message":"Your request will be processed shortly","code":200}`)
		case 2:
			fmt.Fprint(w, `{"status":"running","header":"Running","message":"Processing tweets"}`)
		default:
			fmt.Fprint(w, `{"status":"done","header":"Done","message":"","data":{"stats":{"total":{"value":2,"formatted":"2"}},"dates":[["2020-01-01",2]],"words":[["go",2]],"users":[],"search_terms":[]}}`)
		}
	}))
	defer srv.Close()

	var got *types.UserReport
	p := poller.New(poller.NewHTTPFetcher(srv.URL+"/", nil), &recordingView{}, poller.WithInterval(time.Millisecond))

	if err := p.Poll(context.Background(), poller.StatusPath("jack"), func(r *types.UserReport) { got = r }); err != nil {
		t.Fatalf("Poll() = %v", err)
	}

	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}

	if got == nil || got.Stats.Total.Value != 2 || len(got.Dates) != 1 || got.Words[0].Word != "go" {
		t.Fatalf("report = %+v", got)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "{not json") }},
		{"missing status", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `{"header":"x"}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			err := poller.New(poller.NewHTTPFetcher(srv.URL, srv.Client()), &recordingView{}).
				Poll(context.Background(), "/u/jack.json", nil)
			if !errors.Is(err, poller.ErrTransport) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
