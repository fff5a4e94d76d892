//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

func init() {
	RegisterDialectorFactory(postgres.Open, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
