// Package app 组装 HTTP 服务、任务消费者与定时任务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/jobs"
	"github.com/yeisme/tweetfreq/pkg/internal/router"
	"github.com/yeisme/tweetfreq/pkg/internal/service"
	"github.com/yeisme/tweetfreq/pkg/internal/storage"
	"github.com/yeisme/tweetfreq/pkg/log"
	"github.com/yeisme/tweetfreq/pkg/metrics"
	"github.com/yeisme/tweetfreq/pkg/middleware"
	"github.com/yeisme/tweetfreq/pkg/scheduler"
	"github.com/yeisme/tweetfreq/pkg/tracing"
)

// App 服务端进程：存储、业务服务、可选的定时任务与 HTTP 引擎.
type App struct {
	Engine    *gin.Engine
	Manager   *storage.Manager
	Services  *service.Services
	Scheduler *scheduler.Scheduler
	config    *configs.AppConfig
}

// Bootstrap 加载配置并初始化追踪与监控，所有子命令共用.
func Bootstrap(configPath string) (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	log.Init()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return config, nil
}

// New 打开存储并组装 HTTP 引擎，withScheduler 为 true 时注册定时任务.
func New(ctx context.Context, config *configs.AppConfig, withScheduler bool) (*App, error) {
	manager, err := storage.New(ctx, config)
	if err != nil {
		return nil, err
	}

	a := &App{
		Manager:  manager,
		Services: service.New(manager, config),
		config:   config,
	}

	if withScheduler {
		if a.Scheduler, err = newScheduler(a.Services); err != nil {
			_ = manager.Close()
			return nil, err
		}
	}

	a.Engine = NewEngine(config, manager, a.Services, a.Scheduler)

	return a, nil
}

// NewEngine 按配置创建 gin 引擎并注册全部路由，sched 可以为 nil.
func NewEngine(config *configs.AppConfig, manager *storage.Manager, svc *service.Services, sched *scheduler.Scheduler) *gin.Engine {
	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedExtensions([]string{".png"})),
		middleware.StorageMiddleware(manager),
		middleware.ServicesMiddleware(svc),
		middleware.SchedulerMiddleware(sched),
	)

	router.RegisterPageRoutes(engine)
	router.RegisterUserRoutes(engine)

	api := engine.Group("/api/v1")
	router.RegisterReportRoutes(api, svc.Store)
	router.RegisterHealthCheckRoute(api)
	router.RegisterSchedulerRoutes(api)

	router.RegisterSwaggerRoute(engine)
	metrics.RegisterRoutes(config.Metrics, engine)

	return engine
}

func newScheduler(svc *service.Services) (*scheduler.Scheduler, error) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, err
	}

	var purger jobs.Purger
	if svc.Archive != nil {
		purger = svc.Archive
	}

	if err := jobs.RegisterCronJobs(sched, svc.Config.Archive, svc.Twitter, purger); err != nil {
		_ = sched.Stop()
		return nil, err
	}

	return sched, nil
}

// StartWorker 在当前进程中启动任务消费者，ctx 结束时停止.
func (a *App) StartWorker(ctx context.Context) error {
	mq := a.Manager.GetMQClient()

	r, err := mq.NewRouter()
	if err != nil {
		return err
	}

	jobs.RegisterWorker(r, mq.Subscriber(), mq.Publisher(), a.Services.Status)

	go func() {
		if err := r.Run(ctx); err != nil {
			log.Logger().Error().Err(err).Msg("worker router stopped")
		}
	}()

	<-r.Running()
	log.Logger().Info().Str("handler", jobs.HandlerUserLoad).Msg("Worker started")

	return nil
}

// Run 启动 HTTP 服务，ctx 结束时优雅关闭.
func (a *App) Run(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	if a.config.Server.RunWorker {
		if err := a.StartWorker(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		WriteTimeout:      a.config.Server.WriteTimeout,
		IdleTimeout:       a.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GracePeriod())
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// Close 停止定时任务并关闭存储与追踪.
func (a *App) Close() error {
	var errs []error

	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop())
	}

	errs = append(errs, a.Manager.Close())

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.GracePeriod())
	defer cancel()

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}
