package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore - объектное хранилище выписок.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get возвращает содержимое объекта. Reader нужно закрыть после использования.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// MinioClient реализует ObjectStore поверх MinIO.
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string // Не обязателен для MinIO
}

// NewMinioClient создает клиент MinIO и при необходимости создает бакет.
func NewMinioClient(ctx context.Context, cfg MinioConfig) (*MinioClient, error) {
	log.Printf("[Minio] Инициализация клиента для эндпоинта %s...", cfg.Endpoint)

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		log.Printf("[Minio] Бакет '%s' не найден, создаем...", cfg.BucketName)
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
	}

	log.Printf("[Minio] Клиент инициализирован для бакета '%s'.", cfg.BucketName)
	return &MinioClient{client: minioClient, bucketName: cfg.BucketName}, nil
}

// Put сохраняет объект целиком.
func (c *MinioClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	info, err := c.client.PutObject(ctx, c.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Printf("[Minio] Ошибка загрузки объекта '%s': %v", key, err)
		return fmt.Errorf("ошибка загрузки объекта в MinIO: %w", err)
	}
	log.Printf("[Minio] Объект '%s' загружен, размер: %d, ETag: %s", key, info.Size, info.ETag)
	return nil
}

// Get открывает объект на чтение.
// GetObject ленивый, поэтому наличие объекта проверяется через Stat.
func (c *MinioClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := c.client.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения объекта из MinIO: %w", err)
	}
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		log.Printf("[Minio] Ошибка получения объекта '%s': %v", key, err)
		return nil, fmt.Errorf("ошибка получения объекта из MinIO: %w", err)
	}
	return object, nil
}

// ErrObjectNotFound - объекта с таким ключом нет.
var ErrObjectNotFound = errors.New("объект не найден в хранилище")
