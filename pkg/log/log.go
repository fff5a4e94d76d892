// Package log 提供基于 zerolog 的日志工具，支持 stderr 控制台/JSON 输出和文件输出（lumberjack 轮转）.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按当前配置初始化全局 logger，只生效一次.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || cfg.Log.Level == "" {
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", cfg.Log.Level)

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	writers := []io.Writer{stderrWriter(cfg.Log)}

	if cfg.Log.EnableFile {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		})
	}

	lc := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()

	if cfg.Server.Debug {
		lc = lc.Caller()

		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = lc.Logger()
	log.Logger = logger
}

// stderrWriter 控制台格式面向终端用户，json 格式交给日志采集.
func stderrWriter(cfg configs.LogConfig) io.Writer {
	if cfg.Format == configs.LogFormatJSON {
		return os.Stderr
	}

	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.TimeOnly
		w.NoColor = cfg.NoColor
	})
}

// Logger 返回全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) *zerolog.Logger {
	l := Logger().With().Str("component", name).Logger()

	return &l
}

// GinWriter 把 gin 的调试输出转成 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 以固定级别转发.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(strings.TrimPrefix(string(p), "[GIN-debug]"))
	if msg != "" {
		w.logger.WithLevel(w.level).Str("source", "gin").Msg(msg)
	}

	return len(p), nil
}
