package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/pkg/logger"
)

const (
	verificationFolder = "verifications"
	presignExpiry      = 15 * time.Minute

	// MaxDocumentSize is the largest verification document accepted.
	MaxDocumentSize int64 = 20 << 20
)

var (
	ErrContentTypeNotAllowed = errors.New("content type is not allowed")
	ErrFileTooLarge          = errors.New("file is too large")
)

// DocumentContentTypes are the uploads accepted as verification evidence.
var DocumentContentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
}

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	baseURL string
}

type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	var awsCfg aws.Config

	// Static keys win; otherwise fall back to the default credential chain
	// (environment, shared config, instance role).
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		awsCfg = loaded
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// VerificationKey is the object key for a business verification document.
func VerificationKey(businessID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", verificationFolder, businessID, uuid.NewString(), ext)
}

// PresignVerificationUpload returns a short-lived PUT URL for one document.
// The returned key is what the owner later submits as document_ref.
func (s *S3Storage) PresignVerificationUpload(ctx context.Context, businessID, filename, contentType string) (*PresignedUpload, error) {
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}

	key := VerificationKey(businessID, filename)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		logger.Error("Failed to presign verification upload", err, map[string]interface{}{
			"business_id": businessID,
			"key":         key,
		})
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		FileURL:   s.FileURL(key),
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(presignExpiry),
	}, nil
}

// FileURL resolves a key through the CDN base URL when one is configured.
func (s *S3Storage) FileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

func ValidateFileSize(size int64) error {
	if size > MaxDocumentSize {
		return fmt.Errorf("%w: maximum is %d bytes", ErrFileTooLarge, MaxDocumentSize)
	}
	return nil
}

func ValidateContentType(contentType string) error {
	for _, allowed := range DocumentContentTypes {
		if strings.EqualFold(contentType, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContentTypeNotAllowed, contentType)
}
