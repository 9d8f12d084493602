// Package storage keeps console assets (avatars, course thumbnails) in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"lmsadmin/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/rs/zerolog"
)

// MaxImageBytes caps avatar and thumbnail uploads.
const MaxImageBytes = 5 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds the upload limit")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// BlobStore stores objects and hands out their public URLs.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// DeletePrefix removes every object under prefix and returns how many
	// objects were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type s3Store struct {
	client  objectAPI
	bucket  string
	baseURL string
	logger  zerolog.Logger
}

// NewS3Client builds a path-style client for the configured endpoint.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	}), nil
}

// NewS3Store returns a BlobStore whose URLs are rooted at publicBaseURL.
func NewS3Store(client *s3.Client, bucket, publicBaseURL string, logger zerolog.Logger) BlobStore {
	return newStore(client, bucket, publicBaseURL, logger)
}

func newStore(client objectAPI, bucket, publicBaseURL string, logger zerolog.Logger) *s3Store {
	return &s3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger.With().Str("service", "BlobStore").Logger(),
	}
}

func (s *s3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to upload object")
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *s3Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
}

func (s *s3Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var toDelete []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: obj.Key})
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	// DeleteObjects accepts at most 1000 keys per call.
	for start := 0; start < len(toDelete); start += 1000 {
		end := min(start+1000, len(toDelete))
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: toDelete[start:end], Quiet: aws.Bool(true)},
		}); err != nil {
			return start, fmt.Errorf("failed to delete objects under %s: %w", prefix, err)
		}
	}
	s.logger.Debug().Str("prefix", prefix).Int("count", len(toDelete)).Msg("Deleted objects")
	return len(toDelete), nil
}

// ImageExtension maps an accepted image content type to its file extension.
func ImageExtension(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return ext, nil
}

// CheckImage validates an upload and returns the extension to store it under.
func CheckImage(contentType string, size int) (string, error) {
	if size > MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return ImageExtension(contentType)
}

// AvatarPrefix is the key prefix of every avatar object of a user.
func AvatarPrefix(userID string) string {
	return "avatars/" + userID + "."
}

func AvatarKey(userID, ext string) string {
	return AvatarPrefix(userID) + ext
}

func ThumbnailPrefix(courseID string) string {
	return "thumbnails/" + courseID + "."
}

func ThumbnailKey(courseID, ext string) string {
	return ThumbnailPrefix(courseID) + ext
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
