// Package sink pipes a creditstream.Stream's encrypted output into an S3
// bucket, generalizing the teacher's internal/s3 backend client from a
// full S3-passthrough object store into a single-purpose upload sink for
// this module's demo gateway.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Target names an S3 bucket/key pair an encrypted stream is uploaded to.
type Target struct {
	Bucket string
	Key    string
}

// ParseTarget parses an "s3://bucket/key" URI into a Target.
func ParseTarget(uri string) (Target, error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return Target{}, fmt.Errorf("sink: %q is not an s3:// URI", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, fmt.Errorf("sink: %q must have the form s3://bucket/key", uri)
	}
	return Target{Bucket: parts[0], Key: parts[1]}, nil
}

// Options configures the S3 client backing an S3Sink.
type Options struct {
	Region    string
	Endpoint  string // non-empty for non-AWS providers (MinIO, Garage, ...)
	AccessKey string
	SecretKey string
	// UsePathStyle is required by most S3-compatible providers that are
	// not addressed through virtual-hosted-style DNS.
	UsePathStyle bool
}

// S3Sink uploads a CreditStream's encrypted byte output as a single S3
// object. Unlike the teacher's full Client interface, this module only
// needs the write path: a gateway streams ciphertext in, S3Sink uploads
// it, nothing downstream ever lists or deletes through this sink.
type S3Sink struct {
	client *s3.Client
}

// NewS3Sink builds an S3Sink from opts.
func NewS3Sink(ctx context.Context, opts Options) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return &S3Sink{client: client}, nil
}

// Upload streams body's contents to target as a single PutObject call,
// tagging the object with the session ID and key version it was
// encrypted under so a later restore can find the right unwrap key.
func (s *S3Sink) Upload(ctx context.Context, target Target, body io.Reader, sessionID string, keyVersion int) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
		Body:   body,
		Metadata: map[string]string{
			"creditstream-session-id": sessionID,
			"creditstream-key-version": fmt.Sprintf("%d", keyVersion),
		},
	})
	if err != nil {
		return fmt.Errorf("sink: put object %s/%s: %w", target.Bucket, target.Key, classifyAWSError(err))
	}
	return nil
}

// classifyAWSError annotates an AWS SDK error with its API error code when
// the SDK surfaces one (smithy.APIError), so a caller deciding whether to
// retry an upload sees "NoSuchBucket" instead of an opaque transport
// error string.
func classifyAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err
}
