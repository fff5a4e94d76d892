package jobs

// 任务与处理器名称.
const (
	JobRefreshRateLimits = "twitter.rate_limits.refresh"
	JobArchivePurge      = "archive.purge"

	HandlerUserLoad = "user.load"
)
