// Package poller 轮询状态资源直到后台任务完成或失败.
//
// 每次响应的 status 决定下一步:
//   - done: 隐藏状态显示、显示结果区域，并以 data 调用一次 onComplete
//   - error: 显示 header/message，停止并移除 spinner，不再请求
//   - 其他（queued/running）: 显示 header/message，间隔 interval 后再请求一次
//
// 网络错误、非 2xx 与无法解析的响应同样终止轮询（TransportFailure）.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/tweetfreq/pkg/configs"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/types"
)

var (
	// ErrTransport 请求失败、非 2xx 或响应无法解析.
	ErrTransport = errors.New("status request failed")
	// ErrMalformedPayload status 为 done 但缺少 data.
	ErrMalformedPayload = errors.New("done status without payload")
)

// HeaderRequestFailed TransportFailure 时显示的标题.
const HeaderRequestFailed = "Request failed"

// StatusError 服务端报告的失败.
type StatusError struct {
	Header  string
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Header
	}

	return e.Header + ": " + e.Message
}

// View 状态显示区域.
type View interface {
	// StartSpinner 开始显示进度指示.
	StartSpinner()
	// StopSpinner 停止并移除进度指示.
	StopSpinner()
	// SetStatus 更新标题与说明.
	SetStatus(header, message string)
	// HideStatus 隐藏并移除整个状态显示（包括 spinner）.
	HideStatus()
	// ShowResults 显示结果区域.
	ShowResults()
}

// Fetcher 获取一次状态资源.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*types.StatusResponse, error)
}

// Poller 状态轮询器.
type Poller struct {
	fetcher  Fetcher
	view     View
	clock    clockwork.Clock
	interval time.Duration
	logger   *zerolog.Logger
}

// Option 配置 Poller.
type Option func(*Poller)

// WithInterval 设置轮询间隔，<=0 时使用默认 500ms.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock 替换时钟.
func WithClock(clock clockwork.Clock) Option { return func(p *Poller) { p.clock = clock } }

// WithLogger 替换日志.
func WithLogger(l *zerolog.Logger) Option { return func(p *Poller) { p.logger = l } }

// New 创建轮询器.
func New(fetcher Fetcher, view View, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		view:     view,
		clock:    clockwork.NewRealClock(),
		interval: configs.DefaultPollInterval,
		logger:   nlog.Component("poller"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Poll 阻塞轮询 path，直到完成、失败或 ctx 取消.
func (p *Poller) Poll(ctx context.Context, path string, onComplete func(*types.UserReport)) error {
	return p.Start(ctx, path, onComplete).Wait()
}

// Start 在后台 goroutine 中开始轮询，返回可取消的任务句柄.
func (p *Poller) Start(ctx context.Context, path string, onComplete func(*types.UserReport)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := newTask(cancel)

	p.view.StartSpinner()

	go func() {
		defer cancel()

		state, err := p.run(ctx, path, onComplete)
		t.finish(state, err)
	}()

	return t
}

func (p *Poller) run(ctx context.Context, path string, onComplete func(*types.UserReport)) (State, error) {
	for {
		resp, err := p.fetcher.Fetch(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return StateCancelled, ctx.Err()
			}

			p.view.SetStatus(HeaderRequestFailed, err.Error())
			p.view.StopSpinner()

			return StateTransportFailure, fmt.Errorf("%w: %w", ErrTransport, err)
		}

		p.logger.Debug().Str("path", path).Str("status", string(resp.Status)).Msg("Polled status")

		if resp.Status != types.StatusDone {
			p.view.SetStatus(resp.Header, resp.Message)

			if resp.Status == types.StatusError {
				p.view.StopSpinner()
				return StateError, &StatusError{Header: resp.Header, Message: resp.Message, Code: resp.Code}
			}

			if err := p.sleep(ctx); err != nil {
				return StateCancelled, err
			}

			continue
		}

		if resp.Data == nil {
			p.view.SetStatus(HeaderRequestFailed, ErrMalformedPayload.Error())
			p.view.StopSpinner()

			return StateTransportFailure, ErrMalformedPayload
		}

		p.view.HideStatus()
		p.view.ShowResults()

		if onComplete != nil {
			onComplete(resp.Data)
		}

		return StateDone, nil
	}
}

// sleep 等待一个间隔，ctx 取消时释放计时器.
func (p *Poller) sleep(ctx context.Context) error {
	timer := p.clock.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
