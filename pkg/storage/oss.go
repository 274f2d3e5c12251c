package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"

	"projet-5iw/backend/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OSSStore 阿里云 OSS 存储（私有读写，不生成公开 URL）
type OSSStore struct {
	bucket *oss.Bucket
	prefix string
}

// NewOSSStore 创建 OSS 存储并校验 bucket 可访问
func NewOSSStore(cfg *config.OSSConfig, logger *zap.Logger) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("OSS 配置不完整: endpoint/access_key_id/access_key_secret/bucket")
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	logger.Info("OSS 存储已就绪", zap.String("bucket", cfg.Bucket))
	return &OSSStore{bucket: bkt, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *OSSStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *OSSStore) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	cr := &countingReader{r: r}
	err := s.bucket.PutObject(s.key(name), cr,
		oss.WithContext(ctx),
		oss.ContentType(xlsxContentType),
		oss.ObjectACL(oss.ACLPrivate),
	)
	if err != nil {
		return 0, fmt.Errorf("上传 OSS 失败: %w", err)
	}
	return cr.n, nil
}

func (s *OSSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	body, err := s.bucket.GetObject(s.key(name), oss.WithContext(ctx))
	if err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("读取 OSS 失败: %w", err)
	}
	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.bucket.DeleteObject(s.key(name), oss.WithContext(ctx))
}
