// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
// 服务端用它周期性刷新 Twitter 限流信息并清理过期归档.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/tweetfreq/pkg/log"
)

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上次执行出错
)

// JobFunc 定时任务函数，返回的错误会记录在 JobInfo.Error 中.
type JobFunc func(ctx context.Context) error

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int       `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Scheduler 包装 gocron.Scheduler，按名称管理任务并记录执行情况.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    *zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option 配置 Scheduler.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock 替换时钟，测试中可传入 clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.Logger()

	s, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLogger(gocronLogger{logger: logger}),
		gocron.WithStopTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		scheduler: s,
		clock:     o.clock,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// AddCron 添加一个基于 cron 表达式（5 段）的定时任务，同名任务只允许一个.
func (s *Scheduler) AddCron(name string, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	task := func(ctx context.Context) error {
		s.setStatus(name, StatusRunning, "")
		return job(ctx)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithContext(s.ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				s.finish(jobName, err)
			}),
			gocron.AfterJobRuns(func(_ uuid.UUID, jobName string) {
				s.finish(jobName, nil)
			}),
			gocron.AfterJobRunsWithPanic(func(_ uuid.UUID, jobName string, recoverData any) {
				s.logger.Error().Str("job", jobName).Interface("panic", recoverData).Msg("Job panicked")
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	info := &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		Status:    StatusScheduled,
		CreatedAt: s.clock.Now(),
	}
	if next, err := j.NextRun(); err == nil {
		info.NextRun = next
	}

	s.jobs[name] = j
	s.jobInfos[name] = info

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// RunNow 立即执行一次指定任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return job.RunNow()
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// GetJobInfoByName 通过名称获取任务信息.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("job with name %s does not exist", name)
	}

	return s.snapshot(name, info), nil
}

// GetJobInfos 返回所有定时任务的信息（按名称排序）.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for name, info := range s.jobInfos {
		jobs = append(jobs, s.snapshot(name, info))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待正在运行的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()

	return s.scheduler.Shutdown()
}

// snapshot 拷贝任务信息并刷新下次运行时间，调用方持有读锁.
func (s *Scheduler) snapshot(name string, info *JobInfo) JobInfo {
	out := *info
	if job, ok := s.jobs[name]; ok {
		if next, err := job.NextRun(); err == nil {
			out.NextRun = next
		}
	}

	return out
}

func (s *Scheduler) setStatus(name string, status JobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, exists := s.jobInfos[name]; exists {
		info.Status = status
		info.Error = errMsg
	}
}

func (s *Scheduler) finish(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return
	}

	now := s.clock.Now()
	info.LastRun = now
	info.Runs++

	if err != nil {
		info.Status = StatusError
		info.Error = err.Error()

		s.logger.Warn().Err(err).Str("job", name).Msg("Job failed")

		return
	}

	info.Status = StatusScheduled
	info.Error = ""
	info.LastSuccess = now
}

// gocronLogger 将 gocron 日志转到 zerolog.
type gocronLogger struct {
	logger *zerolog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.logger.Trace().Fields(args).Msg(msg) }
func (l gocronLogger) Info(msg string, args ...any)  { l.logger.Debug().Fields(args).Msg(msg) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn().Fields(args).Msg(msg) }
func (l gocronLogger) Error(msg string, args ...any) { l.logger.Error().Fields(args).Msg(msg) }
