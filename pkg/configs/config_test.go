package configs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

func TestDefaults(t *testing.T) {
	cfg := configs.Defaults()

	if cfg.KV.Type != configs.KVTypeMemory {
		t.Errorf("kv.type = %q, want memory", cfg.KV.Type)
	}

	if cfg.MQ.Type != configs.MQTypeMemory {
		t.Errorf("mq.type = %q, want memory", cfg.MQ.Type)
	}

	if cfg.DB.Type != configs.SQLite {
		t.Errorf("db.type = %q, want sqlite", cfg.DB.Type)
	}

	if got := cfg.Poller.GetInterval(); got != 500*time.Millisecond {
		t.Errorf("poll interval = %s", got)
	}

	if cfg.Analysis.WordLimit != 300 || cfg.Analysis.GetCacheTTL() != time.Hour {
		t.Errorf("analysis defaults = %+v", cfg.Analysis)
	}

	if cfg.Report.SearchBase != configs.DefaultSearchBase {
		t.Errorf("search base = %q", cfg.Report.SearchBase)
	}

	if cfg.Report.ChartMaxZoom != 14*24*time.Hour {
		t.Errorf("max zoom = %s", cfg.Report.ChartMaxZoom)
	}
}

func TestPollerIntervalFallback(t *testing.T) {
	var p configs.PollerConfig
	if p.GetInterval() != configs.DefaultPollInterval {
		t.Fatalf("zero interval should fall back to default")
	}
}

func TestInitConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("server:\n  port: 9090\n  reload_config: false\npoller:\n  interval: 250ms\n")

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}

	if cfg.Poller.GetInterval() != 250*time.Millisecond {
		t.Errorf("interval = %s", cfg.Poller.GetInterval())
	}

	// 未出现在文件中的字段保留默认值
	if cfg.Twitter.PageSize != configs.DefaultTwitterPageSize {
		t.Errorf("page size = %d", cfg.Twitter.PageSize)
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("missing config file should fall back to defaults: %v", err)
	}
}

func TestRedacted(t *testing.T) {
	var cfg configs.AppConfig
	cfg.Twitter.AppKey = "key"
	cfg.Twitter.AppSecret = "secret"
	cfg.DB.Password = "pw"

	r := cfg.Redacted()

	if r.Twitter.AppSecret == "secret" || r.DB.Password == "pw" {
		t.Fatalf("secrets not masked: %+v", r.Twitter)
	}

	if r.Twitter.AppKey != "key" || r.S3.SecretAccessKey != "" {
		t.Fatalf("unexpected change: key=%q s3=%q", r.Twitter.AppKey, r.S3.SecretAccessKey)
	}

	if cfg.Twitter.AppSecret != "secret" {
		t.Fatal("original config modified")
	}
}

func TestDBDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  configs.DBConfig
		want []string
	}{
		{
			name: "sqlite adds extension and pragmas",
			cfg:  configs.DBConfig{Type: configs.SQLite, Database: "data/archive", BusyTimeout: 2 * time.Second},
			want: []string{"file:data/archive.db?", "busy_timeout%282000%29", "journal_mode%28WAL%29"},
		},
		{
			name: "sqlite memory",
			cfg:  configs.DBConfig{Type: configs.SQLite, Database: ":memory:"},
			want: []string{"file::memory:?cache=shared"},
		},
		{
			name: "postgres escapes password",
			cfg: configs.DBConfig{
				Type: configs.Pg, Host: "db", Port: 5432, User: "u", Password: "p@ss", Database: "tf", SSLMode: "disable",
			},
			want: []string{"postgres://u:p%40ss@db:5432/tf?", "sslmode=disable"},
		},
		{
			name: "mysql",
			cfg:  configs.DBConfig{Type: configs.MariaDB, Host: "db", Port: 3306, User: "u", Password: "p", Database: "tf"},
			want: []string{"u:p@tcp(db:3306)/tf?", "parseTime=true"},
		},
		{
			name: "explicit dsn wins",
			cfg:  configs.DBConfig{Type: configs.MySQL, DSN: "raw", Host: "db"},
			want: []string{"raw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := tt.cfg.GetDSN()
			for _, w := range tt.want {
				if !strings.Contains(dsn, w) {
					t.Errorf("dsn %q missing %q", dsn, w)
				}
			}
		})
	}

	if got := (&configs.DBConfig{Type: "oracle"}).GetDSN(); got != "" {
		t.Errorf("unknown type dsn = %q", got)
	}
}

func TestBreakerTrips(t *testing.T) {
	cfg := configs.CircuitBreakerConfig{Enabled: true, FailureRate: 0.5, MinRequests: 4}

	tests := []struct {
		requests, failures uint32
		want               bool
	}{
		{0, 0, false},
		{3, 3, false},
		{4, 1, false},
		{4, 2, true},
		{10, 9, true},
	}

	for _, tt := range tests {
		if got := cfg.Trips(tt.requests, tt.failures); got != tt.want {
			t.Errorf("Trips(%d, %d) = %v, want %v", tt.requests, tt.failures, got, tt.want)
		}
	}

	cfg.Enabled = false
	if cfg.Trips(10, 10) {
		t.Error("disabled breaker tripped")
	}
}
