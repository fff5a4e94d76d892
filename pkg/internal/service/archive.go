package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/model"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/db"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/types"
)

var (
	// ErrReportNotFound 归档中不存在该报告.
	ErrReportNotFound = errors.New("report not found")
	// ErrNoSnapshot 报告没有对象存储快照（s3 未启用）.
	ErrNoSnapshot = errors.New("report has no snapshot")
)

// BlobStore 快照存储，由 s3.Client 实现.
type BlobStore interface {
	Key(name string) string
	PutJSON(ctx context.Context, key string, data []byte) error
	GetJSON(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// ArchiveService 把完成的统计写入数据库，并可选地把完整负载上传到对象存储.
type ArchiveService struct {
	db    *db.Client
	blobs BlobStore
	cfg   configs.ArchiveConfig
	clock clockwork.Clock
}

// NewArchiveService 创建归档服务；blobs 可以为 nil.
func NewArchiveService(dbc *db.Client, blobs BlobStore, cfg configs.ArchiveConfig, clock clockwork.Clock) *ArchiveService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ArchiveService{db: dbc, blobs: blobs, cfg: cfg, clock: clock}
}

// Save 归档一份报告，返回报告 ID.
func (a *ArchiveService) Save(ctx context.Context, report *types.UserReport) (string, error) {
	if len(report.Users) == 0 {
		return "", fmt.Errorf("report without user")
	}

	now := a.clock.Now().UTC()
	row := model.Report{
		ReportID:     NewID(now),
		User:         report.Users[0],
		Total:        int(report.Stats.Total.Value),
		AvgPerDay:    report.Stats.AvgPerDay.Value,
		MaxPerDay:    int(report.Stats.MaxPerDay.Value),
		FirstTweetAt: report.Start.Timestamp,
		LastTweetAt:  report.End.Timestamp,
		ExpiresAt:    now.Add(a.cfg.Retention),
		CreatedAt:    now,
	}

	if len(report.Words) > 0 {
		row.TopWord = report.Words[0].Word
	}

	if a.blobs != nil {
		data, err := sonic.Marshal(report)
		if err != nil {
			return "", err
		}

		key := a.blobs.Key(row.User + "/" + row.ReportID + ".json")
		if err := a.blobs.PutJSON(ctx, key, data); err != nil {
			return "", err
		}

		row.ObjectKey = key
	}

	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("archive report: %w", err)
	}

	return row.ReportID, nil
}

// Recent 返回最近的归档，user 为空时不过滤.
func (a *ArchiveService) Recent(ctx context.Context, user string, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = a.cfg.RecentLimit
	}

	q := a.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if user != "" {
		q = q.Where(&model.Report{User: user})
	}

	var rows []model.Report
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// Snapshot 读取报告的完整快照.
func (a *ArchiveService) Snapshot(ctx context.Context, reportID string) (*types.UserReport, error) {
	var row model.Report

	err := a.db.WithContext(ctx).Where("report_id = ?", reportID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}

	if err != nil {
		return nil, err
	}

	if row.ObjectKey == "" || a.blobs == nil {
		return nil, ErrNoSnapshot
	}

	data, err := a.blobs.GetJSON(ctx, row.ObjectKey)
	if err != nil {
		return nil, err
	}

	var report types.UserReport
	if err := sonic.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", reportID, err)
	}

	return &report, nil
}

// Purge 删除已过保留期的归档及其快照，返回删除的行数.
func (a *ArchiveService) Purge(ctx context.Context) (int64, error) {
	now := a.clock.Now().UTC()

	var expired []model.Report
	if err := a.db.WithContext(ctx).Where("expires_at < ?", now).Find(&expired).Error; err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(expired))

	for _, r := range expired {
		if r.ObjectKey != "" && a.blobs != nil {
			if err := a.blobs.Remove(ctx, r.ObjectKey); err != nil {
				nlog.Logger().Warn().Err(err).Str("key", r.ObjectKey).Msg("Failed to remove snapshot")
			}
		}

		ids = append(ids, r.ID)
	}

	res := a.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Report{})

	return res.RowsAffected, res.Error
}
