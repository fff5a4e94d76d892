package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yeisme/tweetfreq/pkg/report"
	"github.com/yeisme/tweetfreq/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cloudWeights = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Terminal 以 lipgloss 样式输出报告，实现 report.View.
type Terminal struct {
	w io.Writer
	// Limit 词云与词频表显示的行数，<=0 表示全部.
	Limit int
	// Links 是否输出搜索地址列.
	Links bool
}

// NewTerminal 创建终端视图.
func NewTerminal(w io.Writer, limit int) *Terminal {
	return &Terminal{w: w, Limit: limit}
}

func (t *Terminal) println(s string) { fmt.Fprintln(t.w, s) }

func (t *Terminal) Summary(user string, s report.Summary) {
	card := func(label, value string) string {
		return cardStyle.Render(valueStyle.Render(value) + "\n" + labelStyle.Render(label))
	}

	t.println(titleStyle.Render("@" + user))
	t.println(lipgloss.JoinHorizontal(lipgloss.Top,
		card("tweets", s.Total),
		card("average per day", s.AvgPerDay),
		card("most in one day", s.MaxPerDay),
	))
	t.println(dimStyle.Render(fmt.Sprintf("from %s to %s, generated %s, expires %s",
		stamp(s.Start), stamp(s.End), stamp(s.Created), stamp(s.Expires))))
}

func (t *Terminal) DateTable(rows []report.DateRow) {
	headers := []string{"Date", "Tweets"}
	if t.Links {
		headers = append(headers, "Search")
	}

	tbl := newTable(headers...)

	for _, r := range rows {
		row := []string{r.Date.Text, strconv.Itoa(r.Count)}
		if t.Links {
			row = append(row, r.Date.URL)
		}

		tbl.Row(row...)
	}

	t.println(titleStyle.Render("Dates"))
	t.println(tbl.String())
}

func (t *Terminal) WordCloud(words []types.WordCount) {
	parts := make([]string, 0, len(words))
	for _, w := range Cloud(words, t.Limit) {
		parts = append(parts, cloudWeights[w.Weight-1].Render(w.Text))
	}

	t.println(titleStyle.Render("Word cloud"))
	t.println(lipgloss.NewStyle().Width(80).Render(strings.Join(parts, " ")))
}

func (t *Terminal) TermTable(rows []report.TermRow) {
	if t.Limit > 0 && len(rows) > t.Limit {
		rows = rows[:t.Limit]
	}

	headers := []string{"#", "Word", "Count"}
	if t.Links {
		headers = append(headers, "Search")
	}

	tbl := newTable(headers...)

	for _, r := range rows {
		row := []string{strconv.Itoa(r.Rank), r.Term.Text, strconv.Itoa(r.Count)}
		if t.Links {
			row = append(row, r.Term.URL)
		}

		tbl.Row(row...)
	}

	t.println(titleStyle.Render("Words"))
	t.println(tbl.String())
}

func (t *Terminal) Chart(spec report.ChartSpec) {
	t.println(titleStyle.Render(spec.Title.Text))

	var ys []int
	for _, s := range spec.Series {
		for _, p := range s.Data {
			if p.Valid() {
				ys = append(ys, p.Y)
			}
		}
	}

	t.println(Sparkline(ys, 72))
}

// Sparkline 将序列压缩到 width 个字符的迷你图，每个字符取对应区间的最大值.
func Sparkline(ys []int, width int) string {
	if len(ys) == 0 || width <= 0 {
		return ""
	}

	buckets := min(width, len(ys))
	vals := make([]int, buckets)
	peak := 0

	for i, y := range ys {
		b := i * buckets / len(ys)
		vals[b] = max(vals[b], y)
		peak = max(peak, y)
	}

	var sb strings.Builder
	for _, v := range vals {
		idx := 0
		if peak > 0 {
			idx = v * (len(sparkBlocks) - 1) / peak
		}

		sb.WriteRune(sparkBlocks[idx])
	}

	return sb.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || headers[col] == "Tweets" || headers[col] == "Count":
				return numberStyle
			default:
				return cellStyle
			}
		})
}
