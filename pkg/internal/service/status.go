package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/analysis"
	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/metrics"
	"github.com/yeisme/tweetfreq/pkg/queue"
	"github.com/yeisme/tweetfreq/pkg/rule"
	"github.com/yeisme/tweetfreq/pkg/types"
)

// 状态记录的固定文案.
const (
	HeaderQueued     = "Queued"
	MessageQueued    = "Your request will be processed shortly"
	HeaderRetrieving = "Retrieving tweets"
	HeaderProcessing = "Processing tweets"
	HeaderProtected  = "Tweets not available"
	MessageProtected = "That user's timeline is protected/private"
	HeaderNotFound   = "User not found"
	MessageNotFound  = "The specified Twitter username does not exist"
	HeaderExhausted  = "Resources exhausted"
	MessageExhausted = "TweetFreq is under a heavy load. Try again in %s."
	HeaderNoTweets   = "No tweets found"
	HeaderFailed     = "Something went wrong"
)

// ErrInvalidName 用户名不合法.
var ErrInvalidName = errors.New("invalid twitter screen name")

// Timeline 抓取时间线的能力，由 twitter.Client 实现.
type Timeline interface {
	FullTimeline(ctx context.Context, screenName string) ([]twitter.Tweet, error)
	NextReset(ctx context.Context) (time.Time, error)
}

// Publisher 发布任务消息，由 mq.Client 实现.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Archiver 保存完成的统计结果，归档未启用时为 nil.
type Archiver interface {
	Save(ctx context.Context, report *types.UserReport) (string, error)
}

// StatusService 维护 tweetfreq.user.<name> 状态记录：查询时排队，worker 中执行抓取与分析.
type StatusService struct {
	store    *cache.Cache
	pub      Publisher
	timeline Timeline
	archive  Archiver
	cfg      configs.AnalysisConfig
	clock    clockwork.Clock
	flight   singleflight.Group
	logger   *zerolog.Logger
}

// StatusOption 配置 StatusService.
type StatusOption func(*StatusService)

// WithClock 替换时钟.
func WithClock(clock clockwork.Clock) StatusOption {
	return func(s *StatusService) { s.clock = clock }
}

// WithArchive 启用归档.
func WithArchive(a Archiver) StatusOption {
	return func(s *StatusService) { s.archive = a }
}

// NewStatusService 创建状态服务；pub 只在 Lookup 中使用，timeline 只在 Load 中使用.
func NewStatusService(store *cache.Cache, pub Publisher, timeline Timeline, cfg configs.AnalysisConfig, opts ...StatusOption) *StatusService {
	s := &StatusService{
		store:    store,
		pub:      pub,
		timeline: timeline,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		logger:   nlog.Component("status"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NormalizeName 去掉开头的 @ 并小写，然后校验.
func NormalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	if err := rule.ValidateScreenName(name); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return name, nil
}

func recordKey(name string) string { return "user." + name }

// Get 读取状态记录，不存在时 ok 为 false.
func (s *StatusService) Get(ctx context.Context, name string) (types.StatusResponse, bool, error) {
	rec, err := cache.Get[types.StatusResponse](ctx, s.store, recordKey(name))
	if errors.Is(err, cache.ErrMiss) {
		return types.StatusResponse{}, false, nil
	}

	if err != nil {
		return types.StatusResponse{}, false, err
	}

	return rec, true, nil
}

// Lookup 返回用户的状态记录；不存在时写入 queued 记录、发布抓取请求并稍等片刻后重新读取.
func (s *StatusService) Lookup(ctx context.Context, name string) (types.StatusResponse, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return types.StatusResponse{}, err
	}

	if !s.cfg.LookupFlight {
		return s.lookup(ctx, name)
	}

	v, err, _ := s.flight.Do(name, func() (any, error) {
		return s.lookup(ctx, name)
	})
	if err != nil {
		return types.StatusResponse{}, err
	}

	return v.(types.StatusResponse), nil
}

func (s *StatusService) lookup(ctx context.Context, name string) (types.StatusResponse, error) {
	rec, ok, err := s.Get(ctx, name)
	if err != nil || ok {
		return rec, err
	}

	queued := types.NewStatus(types.StatusQueued, HeaderQueued, MessageQueued, 200)
	if err := s.put(ctx, name, queued, s.cfg.GetCacheTTL()); err != nil {
		return types.StatusResponse{}, err
	}

	payload := queue.UserLoadRequested{Name: name, RequestID: NewID(s.clock.Now())}

	msg, err := queue.NewWatermillMessage(queue.TopicUserLoadRequested, payload,
		queue.WithProducer("tweetfreq"), queue.WithSpan(ctx))
	if err == nil {
		err = s.pub.Publish(ctx, queue.TopicUserLoadRequested, msg)
	}

	if err != nil {
		s.logger.Error().Err(err).Str("user", name).Msg("Failed to queue load request")

		failed := types.NewStatus(types.StatusError, HeaderFailed, "", 500)

		return failed, s.put(ctx, name, failed, s.cfg.OverloadTTL)
	}

	s.logger.Debug().Str("user", name).Str("request_id", payload.RequestID).Msg("Queued load request")

	select {
	case <-ctx.Done():
		return queued, nil
	case <-s.clock.After(s.cfg.QueueSettle):
	}

	rec, ok, err = s.Get(ctx, name)
	if err != nil || !ok {
		return queued, err
	}

	return rec, nil
}

// Load 抓取并分析用户时间线，依次写入 running、done 或 error 记录并返回最终记录.
// 已存在且不是 queued 的记录说明其他 worker 正在处理或已有结果，此时不做任何事.
func (s *StatusService) Load(ctx context.Context, name string) (types.StatusResponse, bool, error) {
	rec, ok, err := s.Get(ctx, name)
	if err != nil {
		return rec, false, err
	}

	if ok && rec.Status != types.StatusQueued {
		s.logger.Debug().Str("user", name).Str("status", string(rec.Status)).Msg("Skip duplicate load")
		return rec, false, nil
	}

	start := s.clock.Now()
	defer func() { metrics.JobDuration.Observe(s.clock.Since(start).Seconds()) }()

	retrieving := types.NewStatus(types.StatusRunning, HeaderRetrieving, "", 200)
	if err := s.put(ctx, name, retrieving, s.cfg.RetrieveTTL); err != nil {
		return retrieving, true, err
	}

	timeline, err := s.timeline.FullTimeline(ctx, name)
	if err != nil {
		return s.fail(ctx, name, err)
	}

	processing := types.NewStatus(types.StatusRunning, HeaderProcessing,
		"Received "+humanize.Comma(int64(len(timeline)))+" tweets", 200)
	if err := s.put(ctx, name, processing, s.cfg.ProcessTTL); err != nil {
		return processing, true, err
	}

	report, err := analysis.Build(name, timeline, analysis.Options{
		WordLimit: s.cfg.WordLimit,
		Now:       s.clock.Now(),
		TTL:       s.cfg.GetCacheTTL(),
	})
	if err != nil {
		return s.fail(ctx, name, err)
	}

	done := types.StatusResponse{Status: types.StatusDone, Code: 200, Data: report}
	if err := s.put(ctx, name, done, s.cfg.GetCacheTTL()); err != nil {
		return done, true, err
	}

	metrics.JobCounter.WithLabelValues(string(types.StatusDone)).Inc()

	if s.archive != nil {
		if _, err := s.archive.Save(ctx, report); err != nil {
			s.logger.Warn().Err(err).Str("user", name).Msg("Failed to archive report")
		}
	}

	s.logger.Info().Str("user", name).Int("tweets", len(timeline)).Dur("took", s.clock.Since(start)).Msg("Report ready")

	return done, true, nil
}

// fail 把抓取或分析错误写成 error 记录.
func (s *StatusService) fail(ctx context.Context, name string, cause error) (types.StatusResponse, bool, error) {
	var (
		rec types.StatusResponse
		ttl time.Duration
	)

	switch {
	case errors.Is(cause, twitter.ErrProtected):
		rec, ttl = types.NewStatus(types.StatusError, HeaderProtected, MessageProtected, 403), s.cfg.NotFoundTTL
	case errors.Is(cause, twitter.ErrNotFound):
		rec, ttl = types.NewStatus(types.StatusError, HeaderNotFound, MessageNotFound, 404), s.cfg.NotFoundTTL
	case errors.Is(cause, twitter.ErrNoTweets):
		rec, ttl = types.NewStatus(types.StatusError, HeaderNoTweets, "", 404), s.cfg.NotFoundTTL
	case errors.Is(cause, twitter.ErrRateLimited):
		rec, ttl = types.NewStatus(types.StatusError, HeaderExhausted, s.exhaustedMessage(ctx), 503), s.cfg.OverloadTTL
	default:
		s.logger.Error().Err(cause).Str("user", name).Msg("Load failed")
		rec, ttl = types.NewStatus(types.StatusError, HeaderFailed, "", 500), s.cfg.OverloadTTL
	}

	metrics.JobCounter.WithLabelValues(strings.ToLower(strings.ReplaceAll(rec.Header, " ", "_"))).Inc()

	return rec, true, s.put(ctx, name, rec, ttl)
}

func (s *StatusService) exhaustedMessage(ctx context.Context) string {
	reset, err := s.timeline.NextReset(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read rate limit reset")
		return fmt.Sprintf(MessageExhausted, "a few minutes")
	}

	return fmt.Sprintf(MessageExhausted, HumanizeUntil(s.clock.Now(), reset))
}

// Forget 删除状态记录，下次查询会重新排队抓取.
func (s *StatusService) Forget(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	return s.store.Delete(ctx, recordKey(name))
}

func (s *StatusService) put(ctx context.Context, name string, rec types.StatusResponse, ttl time.Duration) error {
	if err := cache.Set(ctx, s.store, recordKey(name), rec, ttl); err != nil {
		return fmt.Errorf("store status for %s: %w", name, err)
	}

	return nil
}

// untilMagnitudes 不带 "ago"/"from now" 后缀的相对时间.
var untilMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "a moment", DivBy: time.Second},
	{D: 2 * time.Second, Format: "1 second", DivBy: 1},
	{D: time.Minute, Format: "%d seconds", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute", DivBy: 1},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour", DivBy: 1},
	{D: humanize.Day, Format: "%d hours", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day", DivBy: 1},
	{D: humanize.LongTime, Format: "%d days", DivBy: humanize.Day},
}

// HumanizeUntil 格式化 now 到 t 的时长，例如 "15 minutes".
func HumanizeUntil(now, t time.Time) string {
	return humanize.CustomRelTime(now, t, "", "", untilMagnitudes)
}

// NewID 生成 ULID.
func NewID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
