//go:build !no_sqlite

package db

import (
	"github.com/glebarez/sqlite"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

// 纯 Go 的 SQLite 驱动，无需 CGo.
func init() {
	RegisterDialectorFactory(sqlite.Open, configs.SQLite)
}
