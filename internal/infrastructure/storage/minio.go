package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

// ArchiveClient stores copies of ingested recordings in MinIO. Archiving is
// best effort: the pipeline never fails because an archive write failed.
type ArchiveClient struct {
	client *minio.Client
	bucket string
}

// NewArchiveClient creates a MinIO-backed archive client and ensures the
// bucket exists.
func NewArchiveClient(cfg *config.ArchiveConfig) (*ArchiveClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &ArchiveClient{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

func (a *ArchiveClient) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ArchiveRecording uploads one recording payload and returns the object name
// it was stored under.
func (a *ArchiveClient) ArchiveRecording(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	objectName := fmt.Sprintf("recordings/%s-%s", time.Now().UTC().Format("20060102T150405"), path.Base(filename))
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive recording: %w", err)
	}
	return objectName, nil
}

// ListArchived lists archived recording object names.
func (a *ArchiveClient) ListArchived(ctx context.Context) ([]string, error) {
	var objects []string
	objectCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    "recordings/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}
	return objects, nil
}
