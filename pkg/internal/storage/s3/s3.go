// Package s3 保存报告快照到 MinIO/S3 兼容的对象存储.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/tweetfreq/pkg/configs"
	nlog "github.com/yeisme/tweetfreq/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client
	bucket string
	prefix string
}

// New 初始化 MinIO 客户端，若 bucket 不存在则创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许配置完整 URL（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("tweetfreq", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.Bucket).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.GetEndpointURL()).Str("bucket", cfg.Bucket).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key 返回快照对象的完整键.
func (c *Client) Key(name string) string {
	return c.prefix + name
}

// PutJSON 上传 JSON 快照.
func (c *Client) PutJSON(ctx context.Context, key string, data []byte) error {
	_, err := c.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

// GetJSON 读取快照.
func (c *Client) GetJSON(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

// Remove 删除快照.
func (c *Client) Remove(ctx context.Context, key string) error {
	return c.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// HealthCheck 检查 bucket 是否可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)
	return err
}
