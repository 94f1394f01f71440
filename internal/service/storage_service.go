package service

import (
	"context"
	"fmt"
	"io"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/util"
	"learner_dashboard/pkg/logger"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const bucketCheckTimeout = 5 * time.Second

// FileStore 证书文件存储；key 为相对路径，Put 返回下载地址
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// cleanKey 拒绝绝对路径与 ..，统一为正斜杠
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if k == "" || k != strings.TrimPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return k, nil
}

// LocalFileStore 写入本地目录，由 /uploads 静态路由提供下载
type LocalFileStore struct {
	Root   string
	Prefix string
}

func NewLocalFileStore(root string) *LocalFileStore {
	return &LocalFileStore{Root: root, Prefix: "/uploads/"}
}

// Put 先写临时文件再改名，读者不会看到写了一半的证书
func (s *LocalFileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return s.URL(k), nil
}

func (s *LocalFileStore) Remove(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(k))); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalFileStore) URL(key string) string {
	return s.Prefix + strings.TrimPrefix(key, "/")
}

// MinioFileStore S3 兼容存储
type MinioFileStore struct {
	Client    *minio.Client
	Bucket    string
	PublicURL string
}

// NewMinioFileStore 连接 MinIO，桶不存在时创建
func NewMinioFileStore(cfg *config.StorageConfig) (*MinioFileStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), bucketCheckTimeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Log.Info("MinIO 存储桶已创建", zap.String("bucket", cfg.MinioBucket))
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}
	return &MinioFileStore{Client: client, Bucket: cfg.MinioBucket, PublicURL: strings.TrimRight(public, "/")}, nil
}

func (s *MinioFileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if _, err := s.Client.PutObject(ctx, s.Bucket, k, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", err
	}
	return s.URL(k), nil
}

func (s *MinioFileStore) Remove(ctx context.Context, key string) error {
	return s.Client.RemoveObject(ctx, s.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioFileStore) URL(key string) string {
	return s.PublicURL + "/" + strings.TrimPrefix(key, "/")
}

// OSSFileStore 阿里云 OSS；SDK 不接受 context
type OSSFileStore struct {
	Bucket    *oss.Bucket
	PublicURL string
}

func NewOSSFileStore(cfg *config.StorageConfig) (*OSSFileStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	public := cfg.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.%s", cfg.OSSBucket, cfg.OSSEndpoint)
	}
	return &OSSFileStore{Bucket: bucket, PublicURL: strings.TrimRight(public, "/")}, nil
}

func (s *OSSFileStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := s.Bucket.PutObject(k, r, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return s.URL(k), nil
}

func (s *OSSFileStore) Remove(_ context.Context, key string) error {
	return s.Bucket.DeleteObject(key)
}

func (s *OSSFileStore) URL(key string) string {
	return s.PublicURL + "/" + strings.TrimPrefix(key, "/")
}

// StorageService 按配置选择存储；远端初始化失败时退回本地目录
type StorageService struct {
	Files FileStore
}

func NewStorageService(cfg *config.Config) *StorageService {
	var (
		files FileStore
		err   error
	)
	switch cfg.Storage.Type {
	case util.StorageMinio:
		files, err = NewMinioFileStore(&cfg.Storage)
	case util.StorageOSS:
		files, err = NewOSSFileStore(&cfg.Storage)
	}
	if err != nil {
		logger.Log.Error("远端存储初始化失败，证书写入本地目录", zap.String("type", cfg.Storage.Type), zap.Error(err))
		files = nil
	}
	if files == nil {
		files = NewLocalFileStore(cfg.Storage.LocalPath)
	}
	return &StorageService{Files: files}
}

func (s *StorageService) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	return s.Files.Put(ctx, key, r, size, contentType)
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	return s.Files.Remove(ctx, key)
}
