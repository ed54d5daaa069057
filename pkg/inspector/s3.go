package inspector

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the subset of the S3 client used by S3Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes snapshots to an S3 bucket.
type S3Store struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(client PutObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads data as a JSON object.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path.Join(s.prefix, key)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return err
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the S3 endpoint, for S3 compatible stores.
	Endpoint string

	// PathStyle addresses buckets as part of the path.
	PathStyle bool
}

// ErrNoCredentials is returned when the environment holds no AWS keys.
var ErrNoCredentials = errors.New("inspector: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")

// NewS3Client creates an S3 client with credentials from the standard
// AWS environment variables.
func NewS3Client(opts S3Options) *s3.Client {
	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	creds := aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, ErrNoCredentials
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	}))

	return s3.New(s3.Options{
		Region:       region,
		Credentials:  creds,
		UsePathStyle: opts.PathStyle,
		BaseEndpoint: endpoint(opts.Endpoint),
	})
}

func endpoint(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
