// Package jobs 注册后台任务：消费用户抓取请求的 worker 与定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/scheduler"
)

// LimitRefresher 刷新 Twitter 限流信息.
type LimitRefresher interface {
	RefreshRateLimits(ctx context.Context) error
}

// Purger 清理过期归档.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// RegisterCronJobs 配置定时任务：
//   - archive.limits_cron 刷新 Twitter 限流信息（未初始化令牌时跳过）
//   - archive.purge_cron 清理过期的归档报告（purger 为 nil 时不注册）
func RegisterCronJobs(sched *scheduler.Scheduler, cfg configs.ArchiveConfig, limits LimitRefresher, purger Purger) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if limits != nil && cfg.LimitsCron != "" {
		if err := sched.AddCron(JobRefreshRateLimits, cfg.LimitsCron, func(ctx context.Context) error {
			return refreshRateLimits(ctx, limits)
		}); err != nil {
			return err
		}
	}

	if purger != nil && cfg.PurgeCron != "" {
		if err := sched.AddCron(JobArchivePurge, cfg.PurgeCron, func(ctx context.Context) error {
			return purgeArchive(ctx, purger)
		}); err != nil {
			return err
		}
	}

	return nil
}

func refreshRateLimits(ctx context.Context, limits LimitRefresher) error {
	l := log.Logger().With().Str("job", JobRefreshRateLimits).Logger()

	if err := limits.RefreshRateLimits(ctx); err != nil {
		if errors.Is(err, twitter.ErrNoToken) {
			l.Debug().Msg("twitter token not initialized, skip")
			return nil
		}

		return err
	}

	l.Debug().Msg("rate limits refreshed")

	return nil
}

func purgeArchive(ctx context.Context, purger Purger) error {
	l := log.Logger().With().Str("job", JobArchivePurge).Logger()

	n, err := purger.Purge(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		l.Info().Int64("affected", n).Msg("purged expired reports")
	}

	return nil
}
