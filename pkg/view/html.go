package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"

	"github.com/yeisme/tweetfreq/pkg/report"
	"github.com/yeisme/tweetfreq/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

var funcMap = template.FuncMap{
	"date": stamp,
	"ago":  func(t time.Time) string { return humanize.Time(t) },
}

// stamp 页面与终端共用的时间格式, 零值显示为 "-".
func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.UTC().Format("2006-01-02 15:04 MST")
}

// pages 每个页面与 layout 组合后的模板.
var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}

	out := make(map[string]*template.Template, len(files))

	for _, f := range files {
		if f == layoutFile {
			continue
		}

		name := path.Base(f)
		out[name] = template.Must(template.New(name).Funcs(funcMap).ParseFS(templateFS, layoutFile, f))
	}

	return out
}

func execute(w io.Writer, name string, data any) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %s", name)
	}

	return t.ExecuteTemplate(w, "layout", data)
}

// HTML 以 html/template 渲染完整报告页面，实现 report.View.
type HTML struct {
	// ChartURL 图表图片地址，为空时不输出 <img>.
	ChartURL string

	user    string
	summary report.Summary
	dates   []report.DateRow
	cloud   []CloudWord
	terms   []report.TermRow
	chart   template.JS
	err     error
}

// NewHTML 创建 HTML 视图.
func NewHTML(chartURL string) *HTML {
	return &HTML{ChartURL: chartURL}
}

func (h *HTML) Summary(user string, s report.Summary) {
	h.user = user
	h.summary = s
}

func (h *HTML) DateTable(rows []report.DateRow) { h.dates = rows }

func (h *HTML) WordCloud(words []types.WordCount) { h.cloud = Cloud(words, 0) }

func (h *HTML) TermTable(rows []report.TermRow) { h.terms = rows }

func (h *HTML) Chart(spec report.ChartSpec) {
	b, err := sonic.Marshal(spec)
	if err != nil {
		h.err = fmt.Errorf("encode chart options: %w", err)
		return
	}

	h.chart = template.JS(b) //nolint:gosec // 由 ChartSpec 编码得到
}

// Write 输出页面.
func (h *HTML) Write(w io.Writer) error {
	if h.err != nil {
		return h.err
	}

	return execute(w, "user.html", struct {
		User      string
		Summary   report.Summary
		Dates     []report.DateRow
		Cloud     []CloudWord
		Terms     []report.TermRow
		ChartURL  string
		ChartJSON template.JS
	}{h.user, h.summary, h.dates, h.cloud, h.terms, h.ChartURL, h.chart})
}

// StatusPage 渲染尚未完成或失败的状态页，refresh 为 0 时不自动刷新.
func StatusPage(w io.Writer, user string, st *types.StatusResponse, refresh time.Duration) error {
	secs := 0
	if refresh > 0 && st.Status.Pending() {
		secs = max(1, int(refresh.Round(time.Second)/time.Second))
	}

	return execute(w, "status.html", struct {
		User    string
		Header  string
		Message string
		Failed  bool
		Refresh int
	}{user, st.Header, st.Message, st.Status == types.StatusError, secs})
}

// IndexEntry 首页最近分析列表的一项.
type IndexEntry struct {
	User      string
	Total     string
	AvgPerDay string
	CreatedAt time.Time
}

// IndexPage 渲染首页，errMsg 非空时显示在表单下方.
func IndexPage(w io.Writer, recent []IndexEntry, errMsg string) error {
	return execute(w, "index.html", struct {
		Recent []IndexEntry
		Error  string
	}{recent, errMsg})
}

// AboutPage 渲染说明页.
func AboutPage(w io.Writer) error {
	return execute(w, "about.html", nil)
}
