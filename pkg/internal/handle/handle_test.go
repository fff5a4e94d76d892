package handle_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/router"
	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage"
	apitypes "github.com/yeisme/tweetfreq/pkg/internal/types"
	"github.com/yeisme/tweetfreq/pkg/middleware"
	"github.com/yeisme/tweetfreq/pkg/scheduler"
	"github.com/yeisme/tweetfreq/pkg/types"
)

func testConfig(t *testing.T) *configs.AppConfig {
	t.Helper()

	cfg := configs.Defaults()
	cfg.KV.Type = configs.KVTypeMemory
	cfg.MQ.Type = configs.MQTypeMemory
	cfg.Metrics.Enabled = false
	cfg.S3.Enabled = false
	cfg.Archive.Enabled = true
	cfg.DB = configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "archive"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	return &cfg
}

func newServer(t *testing.T, sched *scheduler.Scheduler) (*gin.Engine, *service.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)

	mgr, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	t.Cleanup(func() { _ = mgr.Close() })

	svc := service.New(mgr, cfg)

	e := gin.New()
	e.Use(
		middleware.StorageMiddleware(mgr),
		middleware.ServicesMiddleware(svc),
		middleware.SchedulerMiddleware(sched),
	)

	router.RegisterPageRoutes(e)
	router.RegisterUserRoutes(e)

	api := e.Group("/api/v1")
	router.RegisterReportRoutes(api, nil)
	router.RegisterHealthCheckRoute(api)
	router.RegisterSchedulerRoutes(api)

	return e, svc
}

func sampleReport(user string) *types.UserReport {
	return &types.UserReport{
		Stats: types.Stats{
			Total:     types.Number{Value: 10, Formatted: "10"},
			AvgPerDay: types.Number{Value: 2.5, Formatted: "2.5"},
			MaxPerDay: types.Number{Value: 7, Formatted: "7"},
		},
		Start:   types.TweetRef{ID: 1, Timestamp: time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)},
		End:     types.TweetRef{ID: 2, Timestamp: time.Date(2020, 1, 5, 18, 0, 0, 0, time.UTC)},
		Created: time.Date(2020, 1, 6, 12, 0, 0, 0, time.UTC),
		Expires: time.Date(2020, 1, 7, 12, 0, 0, 0, time.UTC),
		Dates: []types.DateCount{
			{Date: "2020-01-01", Count: 3},
			{Date: "2020-01-05", Count: 7},
		},
		Words: []types.WordCount{{Word: "cat", Count: 5}, {Word: "dog", Count: 2}},
		Users: []string{user},
	}
}

func seed(t *testing.T, svc *service.Services, name string, rec types.StatusResponse) {
	t.Helper()

	if err := cache.Set(context.Background(), svc.Store, "user."+name, rec, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func seedDone(t *testing.T, svc *service.Services, name string) {
	t.Helper()

	rec := types.NewStatus(types.StatusDone, "Done", "", http.StatusOK)
	rec.Data = sampleReport(name)
	seed(t, svc, name, rec)
}

func do(e *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func TestUserStatusJSON(t *testing.T) {
	e, svc := newServer(t, nil)
	seedDone(t, svc, "jack")

	w := do(e, http.MethodGet, "/u/jack.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body=%s", w.Code, w.Body.String())
	}

	var got types.StatusResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Status != types.StatusDone || got.Data == nil || len(got.Data.Dates) != 2 {
		t.Fatalf("status = %+v", got)
	}

	if !strings.Contains(w.Body.String(), `["2020-01-01",3]`) {
		t.Errorf("dates not encoded as pairs: %s", w.Body.String())
	}
}

func TestUserStatusInvalidName(t *testing.T) {
	e, _ := newServer(t, nil)

	w := do(e, http.MethodGet, "/u/this_name_is_far_too_long.json", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestUserRedirects(t *testing.T) {
	e, _ := newServer(t, nil)

	cases := []struct {
		path     string
		location string
	}{
		{"/u/jack", "/u/jack/"},
		{"/u/Jack/", "/u/jack/"},
		{"/u/@jack/", "/u/jack/"},
	}

	for _, tc := range cases {
		w := do(e, http.MethodGet, tc.path, "")
		if w.Code != http.StatusMovedPermanently || w.Header().Get("Location") != tc.location {
			t.Errorf("%s -> %d %q, want 301 %q", tc.path, w.Code, w.Header().Get("Location"), tc.location)
		}
	}
}

func TestUserPage(t *testing.T) {
	e, svc := newServer(t, nil)
	seedDone(t, svc, "jack")
	seed(t, svc, "biz", types.NewStatus(types.StatusRunning, service.HeaderRetrieving, "Received 200 tweets", http.StatusOK))
	seed(t, svc, "ghost", types.NewStatus(types.StatusError, service.HeaderNotFound, service.MessageNotFound, http.StatusNotFound))

	w := do(e, http.MethodGet, "/u/jack/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{"/u/jack/chart.png", "chart-options", "2020-01-05"} {
		if !strings.Contains(body, want) {
			t.Errorf("report page missing %q", want)
		}
	}

	w = do(e, http.MethodGet, "/u/biz/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `http-equiv="refresh"`) {
		t.Errorf("pending page = %d %s", w.Code, w.Body.String())
	}

	w = do(e, http.MethodGet, "/u/ghost/", "")
	if strings.Contains(w.Body.String(), `http-equiv="refresh"`) || !strings.Contains(w.Body.String(), service.HeaderNotFound) {
		t.Errorf("error page = %s", w.Body.String())
	}
}

func TestUserCharts(t *testing.T) {
	e, svc := newServer(t, nil)
	seedDone(t, svc, "jack")

	w := do(e, http.MethodGet, "/u/jack/chart.json", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"x":1577836800000`) {
		t.Errorf("chart.json = %d %s", w.Code, w.Body.String())
	}

	w = do(e, http.MethodGet, "/u/jack/chart.png", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("chart.png = %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("not a png")
	}

	if w := do(e, http.MethodGet, "/u/nobody/chart.json", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing user chart = %d", w.Code)
	}
}

func TestLookupForm(t *testing.T) {
	e, _ := newServer(t, nil)

	w := do(e, http.MethodPost, "/", url.Values{"name": {"@Jack"}}.Encode())
	if w.Code != http.StatusMovedPermanently || w.Header().Get("Location") != "/u/jack/" {
		t.Errorf("lookup = %d %q", w.Code, w.Header().Get("Location"))
	}

	for _, name := range []string{"", "bad name!", "@abcdefghijklmnopq"} {
		w := do(e, http.MethodPost, "/", url.Values{"name": {name}}.Encode())
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "valid Twitter username") {
			t.Errorf("name %q -> %d", name, w.Code)
		}
	}
}

func TestIndexAndAbout(t *testing.T) {
	e, svc := newServer(t, nil)

	if _, err := svc.Archive.Save(context.Background(), sampleReport("jack")); err != nil {
		t.Fatalf("save: %v", err)
	}

	w := do(e, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `href="/u/jack/"`) {
		t.Errorf("index = %d %s", w.Code, w.Body.String())
	}

	if w := do(e, http.MethodGet, "/about/", ""); w.Code != http.StatusOK {
		t.Errorf("about = %d", w.Code)
	}
}

func TestRecentReports(t *testing.T) {
	e, svc := newServer(t, nil)
	ctx := context.Background()

	id, err := svc.Archive.Save(ctx, sampleReport("jack"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := svc.Archive.Save(ctx, sampleReport("biz")); err != nil {
		t.Fatalf("save: %v", err)
	}

	w := do(e, http.MethodGet, "/api/v1/reports/recent?user=jack", "")
	if w.Code != http.StatusOK {
		t.Fatalf("recent = %d %s", w.Code, w.Body.String())
	}

	var resp apitypes.RecentReportsResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Reports) != 1 || resp.Reports[0].ReportID != id || resp.Reports[0].TopWord != "cat" || resp.Reports[0].HasSnapshot {
		t.Errorf("reports = %+v", resp.Reports)
	}

	if w := do(e, http.MethodGet, "/api/v1/reports/recent?limit=500", ""); w.Code != http.StatusBadRequest {
		t.Errorf("limit=500 -> %d", w.Code)
	}

	if w := do(e, http.MethodGet, "/api/v1/reports/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("snapshot without s3 -> %d", w.Code)
	}

	if w := do(e, http.MethodGet, "/api/v1/reports/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown snapshot -> %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	e, _ := newServer(t, nil)

	cases := map[string]int{
		"kv": http.StatusOK,
		"mq": http.StatusOK,
		"db": http.StatusOK,
		"s3": http.StatusServiceUnavailable,
	}

	for component, want := range cases {
		w := do(e, http.MethodGet, "/api/v1/health/"+component, "")
		if w.Code != want {
			t.Errorf("%s = %d %s", component, w.Code, w.Body.String())
		}

		var got apitypes.HealthResponse
		if err := sonic.Unmarshal(w.Body.Bytes(), &got); err != nil || got.Component != component {
			t.Errorf("%s body = %s", component, w.Body.String())
		}
	}
}

func TestScheduler(t *testing.T) {
	e, _ := newServer(t, nil)
	if w := do(e, http.MethodGet, "/api/v1/scheduler/jobs", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no scheduler -> %d", w.Code)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	ran := make(chan struct{}, 1)
	if err := sched.AddCron("noop", "0 0 1 1 *", func(context.Context) error {
		ran <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	sched.Start()

	e, _ = newServer(t, sched)

	w := do(e, http.MethodGet, "/api/v1/scheduler/jobs", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"noop"`) {
		t.Errorf("jobs = %d %s", w.Code, w.Body.String())
	}

	if w := do(e, http.MethodPost, "/api/v1/scheduler/jobs/missing/run", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing job -> %d", w.Code)
	}

	if w := do(e, http.MethodPost, "/api/v1/scheduler/jobs/noop/run", ""); w.Code != http.StatusAccepted {
		t.Fatalf("run -> %d", w.Code)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}
