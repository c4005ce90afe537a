package reftable

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"biorempp/internal/tabular"
	"biorempp/pkg/platform/sentinel"
)

// S3Config parameterizes an object-store source. Endpoint and PathStyle
// support S3-compatible backends such as MinIO; static credentials are
// optional and fall back to the default chain.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	Delimiter       rune
}

// S3Source reads a delimited object from an S3-compatible bucket. Keys
// ending in .gz are transparently decompressed.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
	delim  rune
}

func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source requires a bucket")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("s3 source requires an object key")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	delim := cfg.Delimiter
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &S3Source{client: client, bucket: cfg.Bucket, key: cfg.Key, delim: delim}, nil
}

func (s *S3Source) String() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3Source) Fetch(ctx context.Context) (*tabular.Table, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("reference object %s: %w", s, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get reference object %s: %w", s, err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if strings.HasSuffix(s.key, ".gz") {
		gr, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader for %s: %w", s, err)
		}
		defer gr.Close()
		r = gr
	}

	t, err := tabular.ReadDelimited(r, s.delim)
	if err != nil {
		return nil, fmt.Errorf("read reference object %s: %w", s, err)
	}
	return t, nil
}
