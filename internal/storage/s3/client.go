// Package s3 stores media bytes in an S3-compatible bucket.
package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"mediabundle/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
	keyRoot        = "media"
)

// objectAPI is the subset of *s3.Client the gateway uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type options struct {
	Prefix string `json:"prefix"`
	Key    string `json:"key"`
}

// Client implements the media storage gateway on an S3-compatible bucket.
type Client struct {
	client objectAPI
	bucket string
}

// NewClient creates the S3 client and checks that the bucket is reachable.
func NewClient(ctx context.Context, conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := s3.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	headCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := client.HeadBucket(headCtx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return &Client{client: client, bucket: conf.Bucket}, nil
}

// Save uploads sourcePath under media/<prefix>/<version>/<save id>/<fileName>.
// The prefix of a previous token is reused so all versions of a file share it.
// Every call gets its own save id, so no two saves ever share an object.
func (c *Client) Save(ctx context.Context, sourcePath, fileName string, version int, previous domain.StorageOptions) (domain.StorageOptions, error) {
	prefix := uuid.NewString()
	if previous != "" {
		prev, err := decode(previous)
		if err != nil {
			return "", err
		}
		prefix = prev.Prefix
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open source %s: %w", sourcePath, err)
	}
	defer f.Close()

	key := path.Join(keyRoot, prefix, fmt.Sprint(version), uuid.NewString(), path.Base(fileName))

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err = c.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	raw, err := json.Marshal(options{Prefix: prefix, Key: key})
	if err != nil {
		return "", fmt.Errorf("encode storage options: %w", err)
	}
	return domain.StorageOptions(raw), nil
}

// Remove deletes the object behind token; a missing object counts as removed.
func (c *Client) Remove(ctx context.Context, token domain.StorageOptions) error {
	opts, err := decode(token)
	if err != nil {
		return err
	}

	deleteCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = c.client.HeadObject(deleteCtx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(opts.Key),
	})
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	_, err = c.client.DeleteObject(deleteCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(opts.Key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func decode(token domain.StorageOptions) (options, error) {
	var opts options
	if err := json.Unmarshal([]byte(token), &opts); err != nil {
		return opts, fmt.Errorf("parse storage options %q: %w", token, err)
	}
	if opts.Prefix == "" || !strings.HasPrefix(opts.Key, keyRoot+"/") {
		return opts, fmt.Errorf("invalid storage options %q", token)
	}
	return opts, nil
}
