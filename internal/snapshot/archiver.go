// Package snapshot archives the assembled book HTML to object storage when a
// project is published, so every published revision stays retrievable even
// after the remote store's records change.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type Archiver struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool, log zerolog.Logger) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	a := &Archiver{
		client: client,
		bucket: bucket,
		log:    log.With().Str("component", "snapshot").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return a, nil
}

// ArchiveBook stores one assembled book and returns the object name.
func (a *Archiver) ArchiveBook(ctx context.Context, projectID, title string, html []byte) (string, error) {
	objectName := fmt.Sprintf("projects/%s/%s.html", projectID, time.Now().UTC().Format("20060102T150405Z"))
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(html), int64(len(html)), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
		UserMetadata: map[string]string{
			"book-title": title,
		},
	})
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	a.log.Info().Str("project_id", projectID).Str("object", objectName).Msg("book snapshot archived")
	return objectName, nil
}
