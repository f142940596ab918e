package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/hugh/toga/pkg/config"
)

const presignExpiry = 15 * time.Minute

// Uploader hands out presigned PUT URLs so clients upload listing and
// event images straight to the bucket; the API never proxies image bytes.
type Uploader interface {
	PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error)
}

type PresignedUpload struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

type S3Store struct {
	bucket    string
	presigner *s3.PresignClient
}

func NewS3Store(ctx context.Context, cfg *config.StorageConfig) (*S3Store, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Store{
		bucket:    cfg.Bucket,
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Store) PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	// Random prefix keeps object keys collision-free and unguessable.
	key := "uploads/" + uuid.New().String() + path.Ext(filename)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}

	return &PresignedUpload{
		Key:       key,
		URL:       req.URL,
		ExpiresIn: int64(presignExpiry.Seconds()),
	}, nil
}

var _ Uploader = (*S3Store)(nil)
