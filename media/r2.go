package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Config struct {
	Bucket       string
	AccessKey    string
	SecretKey    string
	Endpoint     string // https://<account-id>.r2.cloudflarestorage.com
	PublicDomain string // custom domain or r2.dev URL
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	s3     objectAPI
	bucket string
	domain string
}

func NewR2Storage(ctx context.Context, cfg R2Config) (*R2Storage, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Endpoint == "" {
		return nil, errors.New("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Storage{
		s3:     client,
		bucket: cfg.Bucket,
		domain: strings.TrimRight(cfg.PublicDomain, "/"),
	}, nil
}

func (s *R2Storage) Upload(ctx context.Context, folder string, f File) (Asset, error) {
	key := objectName(folder, f)
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(ct),
	}
	if f.Size > 0 {
		in.ContentLength = aws.Int64(f.Size)
	}
	if _, err := s.s3.PutObject(ctx, in); err != nil {
		return Asset{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	return Asset{URL: s.publicURL(key), Duration: f.Duration}, nil
}

func (s *R2Storage) Destroy(ctx context.Context, rawURL string) error {
	key, err := s.objectKey(rawURL)
	if err != nil {
		return err
	}
	_, err = s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *R2Storage) publicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.domain, s.bucket, key)
}

// objectKey reverses publicURL. r2.dev style URLs without the bucket prefix
// are accepted too.
func (s *R2Storage) objectKey(raw string) (string, error) {
	if s.domain != "" {
		prefix := s.domain + "/" + s.bucket + "/"
		if strings.HasPrefix(raw, prefix) && len(raw) > len(prefix) {
			return strings.TrimPrefix(raw, prefix), nil
		}
	}

	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(raw, scheme) {
			withoutScheme := strings.TrimPrefix(raw, scheme)
			slash := strings.Index(withoutScheme, "/")
			if slash == -1 || slash == len(withoutScheme)-1 {
				return "", fmt.Errorf("%w: no object path in url", ErrInvalidFile)
			}
			return withoutScheme[slash+1:], nil
		}
	}
	return "", fmt.Errorf("%w: not a recognised R2 public url", ErrInvalidFile)
}
