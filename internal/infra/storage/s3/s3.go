// Хранилище фото заметок (MinIO/S3). Ключ — content-addressed:
// sha256 содержимого, так что повторная загрузка того же фото бесплатна.
package s3

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

type Storage struct {
	cl     *minio.Client
	bucket string
	logger *log.Logger
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	return &Storage{cl: cl, bucket: cfg.Bucket, logger: logger}, nil
}

// stagingKey — уникальный временный ключ на каждую загрузку: финальный
// ключ известен только после хеширования, а общий tmp-ключ параллельные
// загрузки перезаписывали бы друг другу.
func stagingKey() string {
	return "tmp/" + uuid.NewString()
}

// Put загружает фото и возвращает ключ вида "photos/sha256/<hex>".
func (s *Storage) Put(ctx context.Context, r io.Reader, size int64, mime string) (string, error) {
	h := sha256.New()
	pr, pw := io.Pipe()
	mw := io.MultiWriter(h, pw)

	// копируем в пайп и считаем sha параллельно
	go func() {
		_, copyErr := io.Copy(mw, r)
		pw.CloseWithError(copyErr)
	}()

	tmpKey := stagingKey()
	info, err := s.cl.PutObject(ctx, s.bucket, tmpKey, pr, size, minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		s.logger.Printf("put failed: %v", err)
		return "", err
	}

	finalKey := fmt.Sprintf("photos/sha256/%x", h.Sum(nil))
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: tmpKey}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: finalKey}
	if _, err := s.cl.CopyObject(ctx, dst, src); err != nil {
		_ = s.cl.RemoveObject(ctx, s.bucket, tmpKey, minio.RemoveObjectOptions{})
		s.logger.Printf("copy to final key failed: %v", err)
		return "", err
	}
	_ = s.cl.RemoveObject(ctx, s.bucket, tmpKey, minio.RemoveObjectOptions{})

	s.logger.Printf("put ok key=%s size=%d", finalKey, info.Size)
	return finalKey, nil
}

func (s *Storage) Delete(ctx context.Context, storageKey string) error {
	err := s.cl.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{})
	if err != nil {
		s.logger.Printf("delete %q failed: %v", storageKey, err)
	}
	return err
}

func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.cl.BucketExists(ctx, s.bucket)
	return err
}
