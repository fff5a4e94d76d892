package configs

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// DBType 归档库驱动名, 同一驱动允许多个别名.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"

	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"

	SQLite DBType = "sqlite"
)

// Family 将别名归一到驱动族, 未知类型返回空串.
func (t DBType) Family() string {
	switch t {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	}

	return ""
}

const (
	sqliteMemory    = ":memory:"
	sqliteExt       = ".db"
	defaultArchive  = "data/archive"
	defaultDBPort   = 5432
	defaultDBUser   = "postgres"
	defaultIdle     = 5
	defaultLifetime = 30 * time.Minute
	defaultBusy     = 5 * time.Second
)

// DBConfig 报告归档数据库配置.
//
// DSN 非空时直接使用, 其余连接字段被忽略. sqlite 的 Database 是文件路径 (不带扩展名时补 .db).
type DBConfig struct {
	Type            DBType        `mapstructure:"type"              rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"              rule:"hostname"`
	Port            int           `mapstructure:"port"              rule:"min=1,max=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    rule:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    rule:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"` // 仅 sqlite
}

// GetDBType 返回驱动族名, 用于日志与指标标签.
func (c *DBConfig) GetDBType() string {
	if f := c.Type.Family(); f != "" {
		return f
	}

	return "Unknown"
}

// GetDSN 按驱动族拼出连接串, 不支持的类型返回空串.
func (c *DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Type.Family() {
	case "PostgreSQL":
		return c.pgDSN()
	case "MySQL":
		return c.mysqlDSN()
	case "SQLite":
		return c.sqliteDSN()
	}

	return ""
}

// SQLitePath 返回 sqlite 文件路径, 内存库或其他驱动返回空串.
func (c *DBConfig) SQLitePath() string {
	if c.Type != SQLite || c.DSN != "" || c.Database == sqliteMemory {
		return ""
	}

	if filepath.Ext(c.Database) == "" {
		return c.Database + sqliteExt
	}

	return c.Database
}

func (c *DBConfig) pgDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}

	q.Set("application_name", "tweetfreq")
	u.RawQuery = q.Encode()

	return u.String()
}

func (c *DBConfig) mysqlDSN() string {
	q := url.Values{}
	q.Set("charset", "utf8mb4")
	q.Set("parseTime", "true")
	q.Set("loc", "UTC")

	return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s",
		c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database, q.Encode())
}

// sqliteDSN 使用 glebarez 驱动的 _pragma 参数, WAL 让读报告时不阻塞归档写入.
func (c *DBConfig) sqliteDSN() string {
	if c.Database == sqliteMemory {
		return "file::memory:?cache=shared"
	}

	busy := c.BusyTimeout
	if busy <= 0 {
		busy = defaultBusy
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")

	return "file:" + c.SQLitePath() + "?" + q.Encode()
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", SQLite)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", defaultDBPort)
	v.SetDefault("db.user", defaultDBUser)
	v.SetDefault("db.database", defaultArchive)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("db.max_idle_conns", defaultIdle)
	v.SetDefault("db.conn_max_lifetime", defaultLifetime)
	v.SetDefault("db.busy_timeout", defaultBusy)
}
