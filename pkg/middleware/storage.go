package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/tweetfreq/pkg/context"
	"github.com/yeisme/tweetfreq/pkg/internal/storage"
)

// StorageMiddleware 将存储管理器放入请求 context, 健康检查按需取出 kv/mq/db/s3 客户端.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager != nil {
			c.Request = c.Request.WithContext(context.WithStorageManager(c.Request.Context(), manager))
		}

		c.Next()
	}
}
