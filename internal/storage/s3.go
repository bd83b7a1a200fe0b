// Package storage keeps account avatars in S3-compatible object storage
// (R2 in production). Keys are deterministic per account, so a lookup is a
// HEAD probe rather than a database read.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	internalConfig "github.com/scoutlink/backend/internal/config"
	"github.com/scoutlink/backend/internal/domain"
)

// avatarExtensions is the probe order for stored avatars. Uploads always
// normalize to one of these.
var avatarExtensions = []string{"jpg", "png", "webp"}

// contentTypeExt maps accepted upload content types to the stored extension.
var contentTypeExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

var ErrUnsupportedImageType = errors.New("storage: unsupported image content type")

// S3AvatarStore implements domain.AvatarStore against an S3/R2 bucket.
type S3AvatarStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3AvatarStore creates the store. The custom endpoint resolver is what
// points the SDK at R2 instead of AWS.
func NewS3AvatarStore(ctx context.Context, cfg internalConfig.StorageConfig) (*S3AvatarStore, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.Endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &S3AvatarStore{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

func avatarKey(accountType domain.AccountType, accountID, ext string) string {
	return fmt.Sprintf("avatars/%s/%s.%s", accountType, accountID, ext)
}

// GetAvatar probes the deterministic keys for the account and returns the
// public URL of the first hit. An empty url with a nil error means no stored
// avatar exists; callers fall through to their own fallbacks.
func (s *S3AvatarStore) GetAvatar(ctx context.Context, accountID string, accountType domain.AccountType) (string, error) {
	for _, ext := range avatarExtensions {
		key := avatarKey(accountType, accountID, ext)
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var notFound *types.NotFound
			if errors.As(err, &notFound) {
				continue
			}
			return "", fmt.Errorf("avatar probe %s: %w", key, err)
		}
		return s.urlFor(key), nil
	}
	return "", nil
}

// SaveAvatar uploads an account's avatar, replacing any previous one. Stale
// objects under other extensions are removed so the probe order stays
// unambiguous.
func (s *S3AvatarStore) SaveAvatar(ctx context.Context, accountID string, accountType domain.AccountType, file io.Reader, contentType string) (string, error) {
	ext, ok := contentTypeExt[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}

	key := avatarKey(accountType, accountID, ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	for _, other := range avatarExtensions {
		if other == ext {
			continue
		}
		_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(avatarKey(accountType, accountID, other)),
		})
	}

	return s.urlFor(key), nil
}

// DeleteAvatar removes every stored variant for the account.
func (s *S3AvatarStore) DeleteAvatar(ctx context.Context, accountID string, accountType domain.AccountType) error {
	for _, ext := range avatarExtensions {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(avatarKey(accountType, accountID, ext)),
		})
		if err != nil {
			return fmt.Errorf("delete avatar: %w", err)
		}
	}
	return nil
}

func (s *S3AvatarStore) urlFor(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return key
}
