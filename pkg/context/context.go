// Package context 把存储管理器放进 context，并提供带 trace id 的 logger，处理器与中间件通过它取得 kv/mq/db/s3 客户端.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/tweetfreq/pkg/internal/storage"
	dbc "github.com/yeisme/tweetfreq/pkg/internal/storage/db"
	kvc "github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
	mqc "github.com/yeisme/tweetfreq/pkg/internal/storage/mq"
	s3c "github.com/yeisme/tweetfreq/pkg/internal/storage/s3"
)

type managerKey struct{}

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 从 context 中获取 Manager，未注入时为 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// fromManager 管理器缺失时返回零值.
func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	var zero T

	mgr := GetManager(ctx)
	if mgr == nil {
		return zero
	}

	return get(mgr)
}

// GetKVClient 状态缓存客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

// GetMQClient 任务队列客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

// GetDBClient 归档数据库客户端，archive.enabled=false 时为 nil.
func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

// GetS3Client 快照存储客户端，s3.enabled=false 时为 nil.
func GetS3Client(ctx context.Context) *s3c.Client {
	return fromManager(ctx, (*storage.Manager).GetS3Client)
}

// WithTraceContext 当前 span 在采样时给 logger 加上 trace_id 与 span_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
