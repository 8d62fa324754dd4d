package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// S3StoreArgs contains fields parsed from the query arguments of an s3://
// store URL.
type S3StoreArgs struct {
	// AWS Profile to extract credentials from the shared credentials file.
	// If empty, the default credentials are used.
	Profile string
	// Endpoint to connect to S3 (MinIO and friends). If empty, AWS is used.
	Endpoint string
	// Region of the bucket. If empty, it comes from the profile or environment.
	Region string
	// CacheControl applied to stored images.
	CacheControl string
}

type s3Store struct {
	bucket string
	prefix string
	args   S3StoreArgs
	client *s3.S3
}

func newS3(ep *url.URL) (Store, error) {
	var args S3StoreArgs
	if err := parseStoreArgs(ep, &args); err != nil {
		return nil, err
	}
	var bucket, prefix = ep.Host, strings.TrimPrefix(ep.Path, "/")

	var awsConfig = aws.NewConfig()
	awsConfig.WithCredentialsChainVerboseErrors(true)

	if args.Region != "" {
		awsConfig.WithRegion(args.Region)
	}
	if args.Endpoint != "" {
		awsConfig.WithEndpoint(args.Endpoint)
		// Bucket-named virtual hosts do not work with explicit endpoints.
		awsConfig.WithS3ForcePathStyle(true)
	}

	awsSession, err := session.NewSessionWithOptions(session.Options{
		Config:  *awsConfig,
		Profile: args.Profile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "constructing S3 session")
	}
	if awsSession.Config.Region == nil || *awsSession.Config.Region == "" {
		return nil, errors.Errorf("missing AWS region configuration for profile %q", args.Profile)
	}

	logger.Info("constructed S3 image store",
		"bucket", bucket, "prefix", prefix, "endpoint", args.Endpoint, "region", *awsSession.Config.Region)

	return &s3Store{
		bucket: bucket,
		prefix: prefix,
		args:   args,
		client: s3.New(awsSession),
	}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return err
	}
	var putObj = s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		putObj.ContentType = aws.String(contentType)
	}
	if s.args.CacheControl != "" {
		putObj.CacheControl = aws.String(s.args.CacheControl)
	}

	_, err = s.client.PutObjectWithContext(ctx, &putObj)
	return errors.Wrapf(err, "putting s3://%s/%s", s.bucket, k)
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if isS3NotFound(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "getting s3://%s/%s", s.bucket, k)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return data, errors.Wrapf(err, "reading s3://%s/%s", s.bucket, k)
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return err
	}
	// S3 deletes are idempotent; probe first so missing keys are reported.
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if isS3NotFound(err) {
		return ErrNotFound
	} else if err != nil {
		return errors.Wrapf(err, "checking s3://%s/%s", s.bucket, k)
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	return errors.Wrapf(err, "deleting s3://%s/%s", s.bucket, k)
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	if awsErr, ok := err.(awserr.RequestFailure); ok && awsErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
		return true
	}
	return false
}
