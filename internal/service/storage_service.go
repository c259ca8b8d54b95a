package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainacademy_backend/internal/config"
	"chainacademy_backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var allowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type StorageService struct {
	cfg   config.StorageConfig
	minio *minio.Client
}

func NewStorageService(cfg config.StorageConfig) (*StorageService, error) {
	s := &StorageService{cfg: cfg}

	if cfg.Type == "minio" {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		s.minio = client

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exists, err := client.BucketExists(ctx, cfg.MinioBucket)
		if err != nil {
			return nil, fmt.Errorf("minio bucket check: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("minio bucket create: %w", err)
			}
			logger.Log.Info("created storage bucket", zap.String("bucket", cfg.MinioBucket))
		}
	}
	return s, nil
}

// UploadCourseCover stores a cover image and returns its public path.
func (s *StorageService) UploadCourseCover(ctx context.Context, courseID uint, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageTypes[ext] {
		return "", fmt.Errorf("unsupported image type %s", ext)
	}
	if file.Size > 5<<20 {
		return "", fmt.Errorf("image exceeds 5MB limit")
	}

	objectName := fmt.Sprintf("covers/%d/%s%s", courseID, uuid.NewString(), ext)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if s.minio != nil {
		_, err := s.minio.PutObject(ctx, s.cfg.MinioBucket, objectName, src, file.Size, minio.PutObjectOptions{
			ContentType: contentTypeFor(ext),
		})
		if err != nil {
			return "", fmt.Errorf("minio upload: %w", err)
		}
		scheme := "http"
		if s.cfg.MinioUseSSL {
			scheme = "https"
		}
		return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.MinioEndpoint, s.cfg.MinioBucket, objectName), nil
	}

	dst := filepath.Join(s.cfg.LocalPath, objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return "/uploads/" + objectName, nil
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
