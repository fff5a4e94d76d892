package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/poller"
	"github.com/yeisme/tweetfreq/pkg/report"
	"github.com/yeisme/tweetfreq/pkg/types"
	"github.com/yeisme/tweetfreq/pkg/view"
)

// 报告输出格式.
const (
	formatTerminal = "terminal"
	formatHTML     = "html"
	formatJSON     = "json"
)

var (
	reportOpts struct {
		baseURL string
		format  string
		output  string
		plain   bool
		links   bool
	}

	reportCmd = &cobra.Command{
		Use:   "report <screen-name>",
		Short: "poll the service until statistics are ready and render them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := service.NormalizeName(args[0])
			if err != nil {
				return err
			}

			cfg := configs.GetConfig()
			if reportOpts.baseURL != "" {
				cfg.Poller.BaseURL = reportOpts.baseURL
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			payload, err := pollReport(ctx, cfg.Poller, user)
			if err != nil {
				return err
			}

			return writeReport(cmd.OutOrStdout(), cfg, user, payload)
		},
	}
)

// pollReport 轮询 /u/<user>.json 直到完成；默认用 TUI 展示进度，--plain 时只写日志.
func pollReport(ctx context.Context, cfg configs.PollerConfig, user string) (*types.UserReport, error) {
	fetcher := poller.NewHTTPFetcher(cfg.BaseURL, &http.Client{Timeout: cfg.RequestTimeout})

	var payload *types.UserReport

	onComplete := func(r *types.UserReport) { payload = r }
	path := poller.StatusPath(user)

	if reportOpts.plain {
		p := poller.New(fetcher, view.NewPlain(log.Logger()), poller.WithInterval(cfg.GetInterval()))
		if err := p.Poll(ctx, path, onComplete); err != nil {
			return nil, err
		}

		return payload, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tui := view.NewTUI(user, cancel, teaOptions()...)
	p := poller.New(fetcher, tui, poller.WithInterval(cfg.GetInterval()))

	if err := runWithDisplay(tui, func() *poller.Task { return p.Start(ctx, path, onComplete) }); err != nil {
		return nil, err
	}

	return payload, nil
}

// statusDisplay 交互式状态显示, Run 阻塞到程序退出.
type statusDisplay interface {
	Run() (interrupted bool, err error)
	Quit()
}

// runWithDisplay 在 display 运行期间执行轮询任务, 任务结束后关闭 display.
//
// start 会同步调用 StartSpinner, 必须在 display 循环运行后才能送达, 所以放在 goroutine 里.
// display 自身出错时取消任务并返回该错误.
func runWithDisplay(d statusDisplay, start func() *poller.Task) error {
	tasks := make(chan *poller.Task, 1)

	go func() {
		task := start()
		tasks <- task

		<-task.Done()
		d.Quit()
	}()

	interrupted, err := d.Run()

	task := <-tasks

	if err != nil {
		task.Cancel()
		<-task.Done()

		return fmt.Errorf("status display: %w", err)
	}

	if interrupted {
		task.Cancel()
	}

	if werr := task.Wait(); werr != nil {
		if task.State() == poller.StateCancelled {
			return fmt.Errorf("interrupted: %w", werr)
		}

		return werr
	}

	return nil
}

// TUI 输出到 stderr，stdout 只留给报告.
func teaOptions() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithOutput(os.Stderr)}
}

func writeReport(stdout io.Writer, cfg *configs.AppConfig, user string, payload *types.UserReport) error {
	out := stdout

	if reportOpts.output != "" && reportOpts.output != "-" {
		f, err := os.Create(reportOpts.output)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	opts := []report.Option{report.WithConfig(cfg.Report)}

	switch strings.ToLower(reportOpts.format) {
	case formatTerminal:
		t := view.NewTerminal(out, cfg.Report.CloudSize)
		t.Links = reportOpts.links

		return report.Render(payload, user, t, opts...)
	case formatHTML:
		base := strings.TrimSuffix(cfg.Poller.BaseURL, "/")

		page := view.NewHTML(base + "/u/" + user + "/chart.png")
		if err := report.Render(payload, user, page, opts...); err != nil {
			return err
		}

		return page.Write(out)
	case formatJSON:
		r, err := report.Build(payload, user, opts...)
		if err != nil {
			return err
		}

		b, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, string(b))

		return err
	default:
		return errors.New("unknown format " + reportOpts.format + " (terminal, html, json)")
	}
}

// registerReportCommands 注册报告客户端命令.
func registerReportCommands() {
	f := reportCmd.Flags()
	f.StringVar(&reportOpts.baseURL, "base-url", "", "service base url (default poller.base_url)")
	f.StringVarP(&reportOpts.format, "format", "f", formatTerminal, "output format: terminal, html, json")
	f.StringVarP(&reportOpts.output, "output", "o", "-", "output file, - for stdout")
	f.BoolVar(&reportOpts.plain, "plain", false, "log status lines instead of the interactive spinner")
	f.BoolVar(&reportOpts.links, "links", false, "print search links in terminal tables")

	rootCmd.AddCommand(reportCmd)
}
