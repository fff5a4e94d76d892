// Package service 实现状态记录、抓取任务与报告归档的业务逻辑，不处理 HTTP 细节.
package service

import (
	"context"

	"github.com/yeisme/tweetfreq/pkg/cache"
	"github.com/yeisme/tweetfreq/pkg/configs"
	ctxPkg "github.com/yeisme/tweetfreq/pkg/context"
	"github.com/yeisme/tweetfreq/pkg/internal/storage"
	"github.com/yeisme/tweetfreq/pkg/internal/twitter"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
)

// Services 组装好的业务服务.
type Services struct {
	Config  *configs.AppConfig
	Store   *cache.Cache
	Twitter *twitter.Client
	Status  *StatusService
	// Archive 在 archive.enabled=false 时为 nil
	Archive *ArchiveService
}

// New 根据存储管理器与配置组装服务.
func New(mgr *storage.Manager, cfg *configs.AppConfig) *Services {
	store := cache.NewCache(mgr.GetKVClient(), cfg.KV.Prefix)
	tw := twitter.New(cfg.Twitter, cfg.CircuitBreaker, store)

	svc := &Services{Config: cfg, Store: store, Twitter: tw}

	var opts []StatusOption

	if dbc := mgr.GetDBClient(); dbc != nil {
		var blobs BlobStore
		if s3c := mgr.GetS3Client(); s3c != nil {
			blobs = s3c
		}

		svc.Archive = NewArchiveService(dbc, blobs, cfg.Archive, nil)
		opts = append(opts, WithArchive(svc.Archive))
	}

	svc.Status = NewStatusService(store, mgr.GetMQClient(), tw, cfg.Analysis, opts...)

	return svc
}

// FromContext 从 context 中的存储管理器组装服务，管理器缺失时直接退出.
func FromContext(c context.Context) *Services {
	mgr := ctxPkg.GetManager(c)
	if mgr == nil || mgr.GetKVClient() == nil || mgr.GetMQClient() == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return New(mgr, configs.GetConfig())
}
