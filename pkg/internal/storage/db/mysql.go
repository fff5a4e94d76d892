//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

func init() {
	RegisterDialectorFactory(mysql.Open, configs.MySQL, configs.MariaDB)
}
