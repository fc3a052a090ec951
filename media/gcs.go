package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSStorage authenticates with the service account file at
// credentialsFile, relative to the working directory.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs: GCS_BUCKET is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if !filepath.IsAbs(credentialsFile) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			credentialsFile = filepath.Join(wd, credentialsFile)
		}
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Upload(ctx context.Context, folder string, f File) (Asset, error) {
	name := objectName(folder, f)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if f.ContentType != "" {
		w.ContentType = f.ContentType
	}
	if _, err := io.Copy(w, f.Body); err != nil {
		_ = w.Close()
		return Asset{}, fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return Asset{}, fmt.Errorf("upload close: %w", err)
	}

	publicURL := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name)
	return Asset{URL: publicURL, Duration: f.Duration}, nil
}

// Destroy deletes the object behind a public URL. A missing object is not an
// error.
func (s *GCSStorage) Destroy(ctx context.Context, rawURL string) error {
	name, err := gcsObjectName(s.bucket, rawURL)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func gcsObjectName(bucket, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url: %v", ErrInvalidFile, err)
	}

	host := strings.ToLower(u.Host)
	p := strings.TrimPrefix(u.Path, "/")

	// storage.googleapis.com/<bucket>/<object>
	if host == "storage.googleapis.com" {
		prefix := bucket + "/"
		if !strings.HasPrefix(p, prefix) || p == prefix {
			return "", fmt.Errorf("%w: url bucket mismatch", ErrInvalidFile)
		}
		return strings.TrimPrefix(p, prefix), nil
	}

	// <bucket>.storage.googleapis.com/<object>
	if host == strings.ToLower(bucket)+".storage.googleapis.com" {
		if p == "" {
			return "", fmt.Errorf("%w: missing object path", ErrInvalidFile)
		}
		return p, nil
	}

	return "", fmt.Errorf("%w: not a gcs public url", ErrInvalidFile)
}
