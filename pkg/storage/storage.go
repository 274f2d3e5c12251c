package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projet-5iw/backend/config"
)

var (
	ErrObjectNotFound = errors.New("文件不存在")
	ErrInvalidName    = errors.New("非法文件名")
)

// FileStore 上传文件的保存/读取契约，按不可猜测的存储名寻址
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// NewSecureName 生成不可枚举的存储名：UUID + 16 字节随机数 + 扩展名
func NewSecureName(ext string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机文件名失败: %w", err)
	}
	return uuid.New().String() + "-" + hex.EncodeToString(buf) + ext, nil
}

// New 根据配置创建存储实现
func New(cfg *config.StorageConfig, logger *zap.Logger) (FileStore, error) {
	switch cfg.Driver {
	case "oss":
		return NewOSSStore(&cfg.OSS, logger)
	default:
		return NewLocalStore(cfg.LocalDir)
	}
}

// countingReader 统计写入字节数
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
