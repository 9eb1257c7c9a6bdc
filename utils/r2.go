// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Options locate a Cloudflare R2 bucket.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// CDNBaseURL prefixes returned object URLs; defaults to the bucket endpoint.
	CDNBaseURL string
}

// R2Store writes objects to an R2 bucket through the S3 API.
type R2Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewR2Store(ctx context.Context, opts R2Options) (*R2Store, error) {
	if opts.Bucket == "" || opts.AccountID == "" {
		return nil, fmt.Errorf("R2 bucket and account id are required")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	baseURL := strings.TrimRight(opts.CDNBaseURL, "/")
	if baseURL == "" {
		baseURL = endpoint + "/" + opts.Bucket
	}
	return &R2Store{client: client, bucket: opts.Bucket, baseURL: baseURL}, nil
}

// Put uploads body under key and returns its public URL.
func (r *R2Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", r.baseURL, key), nil
}
