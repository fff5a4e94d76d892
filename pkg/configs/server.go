package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
	Host         string `mapstructure:"host"          rule:"ip"`
	ReloadConfig bool   `mapstructure:"reload_config"`
	Debug        bool   `mapstructure:"debug"`
	// RunWorker 为 true 时 serve 命令在同一进程内消费加载任务.
	RunWorker bool `mapstructure:"run_worker"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 返回监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GracePeriod 返回关闭等待时间, 未配置时 10s.
func (s *ServerConfig) GracePeriod() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}

	return s.ShutdownTimeout
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.reload_config", true)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.run_worker", true)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}
