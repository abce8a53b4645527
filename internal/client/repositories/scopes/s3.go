package scopes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
)

// S3Config configures the object-storage repository.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // for S3-compatible services (MinIO, etc.)
	Prefix   string // object key prefix, prepended to the scope record key

	// Prefer IAM roles or environment credentials; set these only for
	// local S3-compatible setups.
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Repository implements Repository on top of S3 or an S3-compatible store.
// Each scope record is one object under Prefix + common.ScopeRecordKeyPrefix
// + scope id.
type S3Repository struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Repository builds the client from the default AWS config chain plus
// any overrides in cfg.
func NewS3Repository(ctx context.Context, cfg S3Config) (*S3Repository, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return &S3Repository{client: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

func (r *S3Repository) objectKey(scopeID int64) string {
	return fmt.Sprintf("%s%s%d", r.cfg.Prefix, common.ScopeRecordKeyPrefix, scopeID)
}

func (r *S3Repository) Load(ctx context.Context, scopeID int64) (*models.ScopeRecord, error) {
	resp, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(r.objectKey(scopeID)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body failed: %w", err)
	}

	var rec models.ScopeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode scope record: %w", err)
	}
	return &rec, nil
}

func (r *S3Repository) Save(ctx context.Context, record *models.ScopeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode scope record: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(r.objectKey(record.ScopeID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object failed: %w", err)
	}
	return nil
}

func (r *S3Repository) Delete(ctx context.Context, scopeID int64) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(r.objectKey(scopeID)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object failed: %w", err)
	}
	return nil
}
