// Package storage 聚合状态缓存（KV）、任务队列（MQ）、归档数据库（DB）与快照存储（S3）.
//
// Example:
//
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	kvClient := mgr.GetKVClient()
//	mqClient := mgr.GetMQClient()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/tweetfreq/pkg/configs"
	dbc "github.com/yeisme/tweetfreq/pkg/internal/storage/db"
	kvc "github.com/yeisme/tweetfreq/pkg/internal/storage/kv"
	mqc "github.com/yeisme/tweetfreq/pkg/internal/storage/mq"
	s3c "github.com/yeisme/tweetfreq/pkg/internal/storage/s3"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
)

// Manager 聚合所有存储资源；DB 在 archive.enabled=false 时为 nil，S3 在 s3.enabled=false 时为 nil.
type Manager struct {
	KV *kvc.Client
	MQ *mqc.Client
	DB *dbc.Client
	S3 *s3c.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// New 按配置创建 Manager，任一组件失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	kvStore, err := kvc.NewKVStore(ctx, kvc.KVType(cfg.KV.Type), &cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.KV = &kvc.Client{KVStore: kvStore, Type: kvc.KVType(cfg.KV.Type)}

	if m.MQ, err = mqc.NewClient(ctx, &cfg.MQ, cfg.Metrics.Enabled); err != nil {
		_ = m.Close()
		return nil, err
	}

	if cfg.Archive.Enabled {
		var dbOpts []dbc.Option
		if cfg.Metrics.Enabled {
			dbOpts = append(dbOpts, dbc.WithMetrics(cfg.Metrics.CollectInterval))
		}

		if m.DB, err = dbc.New(ctx, &cfg.DB, dbOpts...); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}

	if cfg.S3.Enabled {
		if m.S3, err = s3c.New(ctx, &cfg.S3); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init s3: %w", err)
		}
	}

	nlog.Logger().Info().
		Str("kv", cfg.KV.Type).
		Str("mq", string(cfg.MQ.Type)).
		Bool("archive", m.DB != nil).
		Bool("s3", m.S3 != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// Close 关闭所有已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
