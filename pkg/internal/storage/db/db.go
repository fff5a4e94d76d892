// Package db 处理报告归档数据库.
//
// 驱动通过 RegisterDialectorFactory 在各自文件的 init 中注册, 构建标签可裁掉不需要的驱动.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/model"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
)

// DialectorFactory 由 DSN 创建 gorm dialector.
type DialectorFactory func(dsn string) gorm.Dialector

var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 为一组类型别名注册同一个 dialector.
func RegisterDialectorFactory(factory DialectorFactory, dbTypes ...configs.DBType) {
	for _, t := range dbTypes {
		dialectorFactories[t] = factory
	}
}

// GetRegisteredDBTypes 返回已编译进来的数据库类型, 按名称排序.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for t := range dialectorFactories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

type options struct {
	metrics       bool
	refresh       time.Duration
	slowThreshold time.Duration
}

// Option 配置 New.
type Option func(*options)

// WithMetrics 注册 gorm 连接池指标, interval 为刷新间隔.
func WithMetrics(interval time.Duration) Option {
	return func(o *options) {
		o.metrics = true
		o.refresh = interval
	}
}

// WithSlowThreshold 超过阈值的 SQL 以 warn 记录, 0 关闭.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// New 打开数据库并迁移归档模型.
func New(ctx context.Context, cfg *configs.DBConfig, opts ...Option) (*Client, error) {
	o := options{refresh: 15 * time.Second, slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	factory, ok := dialectorFactories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type %q (compiled: %v)", cfg.Type, GetRegisteredDBTypes())
	}

	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn for database type %q", cfg.Type)
	}

	if path := cfg.SQLitePath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	lg := nlog.Component("db")

	gdb, err := gorm.Open(factory(dsn), &gorm.Config{
		Logger: logger.New(lg, logger.Config{
			SlowThreshold:             o.slowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.GetDBType(), err)
	}

	c := &Client{DB: gdb}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.GetDBType(), err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	if o.metrics {
		if err := c.registerMetrics(cfg.Database, o.refresh); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	lg.Info().Str("type", cfg.GetDBType()).Str("database", cfg.Database).Msg("archive database ready")

	return c, nil
}

// HealthCheck ping 数据库.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// registerMetrics 挂载 gorm prometheus 插件, 指标进默认注册表, 由 /metrics 暴露.
func (c *Client) registerMetrics(name string, refresh time.Duration) error {
	secs := uint32(refresh / time.Second)
	if secs == 0 {
		secs = 15
	}

	if err := c.Use(gormPrometheus.New(gormPrometheus.Config{
		DBName:          filepath.Base(name),
		RefreshInterval: secs,
	})); err != nil {
		return fmt.Errorf("register gorm metrics: %w", err)
	}

	return nil
}
