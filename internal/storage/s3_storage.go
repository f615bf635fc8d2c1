package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"biztech/api/internal/config"
)

// IDeliverableStorage defines the S3 operations used for premium deliverable
// documents (sale packs, financial analyses, legal attestations).
type IDeliverableStorage interface {
	GenerateUploadURL(ctx context.Context, listingID, flag, filename, contentType string) (string, string, error)
	GenerateDownloadURL(ctx context.Context, objectKey string) (string, error)
}

// deliverableStorage implements IDeliverableStorage.
type deliverableStorage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewDeliverableStorage creates the S3-backed deliverable document store.
func NewDeliverableStorage(cfg *config.Config) (IDeliverableStorage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	return &deliverableStorage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: presignClient,
	}, nil
}

// GenerateUploadURL creates a pre-signed PUT URL for a deliverable document.
// It returns the URL and the generated S3 object key.
func (s *deliverableStorage) GenerateUploadURL(ctx context.Context, listingID, flag, filename, contentType string) (string, string, error) {
	// Key layout: deliverables/<listing>/<flag>/<uuid>_<filename>; the UUID
	// keeps re-uploads from clobbering earlier versions.
	objectKey := fmt.Sprintf("deliverables/%s/%s/%s_%s", listingID, flag, uuid.NewString(), filename)

	expiration := 15 * time.Minute

	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	return presignedReq.URL, objectKey, nil
}

// GenerateDownloadURL creates a short-lived pre-signed GET URL for an uploaded
// deliverable document.
func (s *deliverableStorage) GenerateDownloadURL(ctx context.Context, objectKey string) (string, error) {
	presignParams := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(objectKey),
	}

	presignedReq, err := s.presignClient.PresignGetObject(ctx, presignParams, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned GET URL for key %s: %w", objectKey, err)
	}
	return presignedReq.URL, nil
}
