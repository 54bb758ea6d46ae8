// Package r2 archives quiz reports in a Cloudflare R2 bucket through its S3
// compatible API.
package r2

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"mindmate/internal/config"
)

// ErrNotConfigured is returned when uploading through a nil Client.
var ErrNotConfigured = errors.New("R2 client not initialized")

// putter is the part of *s3.Client the uploader needs.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads report files to a single R2 bucket.
type Client struct {
	s3         putter
	bucketName string
	publicURL  string
}

// NewClient builds a Client from cfg. It returns (nil, nil) when R2 is not
// fully configured, in which case reports are only kept in the session.
func NewClient(ctx context.Context, cfg config.R2Config) (*Client, error) {
	if !cfg.Enabled() {
		config.Logger.Warn("Cloudflare R2 not fully configured (CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_PUBLIC_URL); report uploads disabled")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	endpoint := Endpoint(cfg.AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	config.Logger.WithField("bucket", cfg.BucketName).Info("R2 client initialized")
	return newClient(s3Client, cfg.BucketName, cfg.PublicURL), nil
}

func newClient(p putter, bucketName, publicURL string) *Client {
	return &Client{s3: p, bucketName: bucketName, publicURL: publicURL}
}

// Endpoint returns the S3 API endpoint of an R2 account.
func Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// ObjectKey is the key a session's report is stored under. Each session has
// one report, so a new upload overwrites the previous one.
func ObjectKey(sessionID uuid.UUID, filename string) string {
	return path.Join("reports", sessionID.String(), filename)
}

// UploadReport stores body under the session's report key and returns its
// public URL.
func (c *Client) UploadReport(ctx context.Context, sessionID uuid.UUID, filename string, body io.Reader) (string, error) {
	if c == nil || c.s3 == nil {
		return "", ErrNotConfigured
	}

	key := ObjectKey(sessionID, filename)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to R2 (key: %s): %w", key, err)
	}

	publicURL, err := c.objectURL(key)
	if err != nil {
		return "", err
	}
	config.WithContext(ctx).WithField("url", publicURL).Info("uploaded report to R2")
	return publicURL, nil
}

func (c *Client) objectURL(key string) (string, error) {
	base, err := url.Parse(c.publicURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid R2 public base URL %q", c.publicURL)
	}
	base.Path = path.Join("/", base.Path, key)
	return base.String(), nil
}
