package blobstore

import (
	"context"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// GCSStoreArgs contains fields parsed from the query arguments of a gs://
// store URL.
type GCSStoreArgs struct {
	// Endpoint overrides the storage API endpoint, e.g. a local emulator.
	Endpoint string
	// Anonymous disables authentication, for emulators and public buckets.
	Anonymous bool
	// CacheControl applied to stored images.
	CacheControl string
}

type gcsStore struct {
	bucket string
	prefix string
	args   GCSStoreArgs
	client *storage.Client
}

func newGCS(ctx context.Context, ep *url.URL) (Store, error) {
	var args GCSStoreArgs
	if err := parseStoreArgs(ep, &args); err != nil {
		return nil, err
	}
	var bucket, prefix = ep.Host, strings.TrimPrefix(ep.Path, "/")

	var opts []option.ClientOption
	if args.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(args.Endpoint))
	}
	if args.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "constructing GCS client")
	}

	logger.Info("constructed GCS image store", "bucket", bucket, "prefix", prefix, "endpoint", args.Endpoint)

	return &gcsStore{
		bucket: bucket,
		prefix: prefix,
		args:   args,
		client: client,
	}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(k).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = s.args.CacheControl

	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "writing gs://%s/%s", s.bucket, k)
	}
	return errors.Wrapf(w.Close(), "closing gs://%s/%s", s.bucket, k)
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(k).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "opening gs://%s/%s", s.bucket, k)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "reading gs://%s/%s", s.bucket, k)
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(s.prefix, key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(k).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return errors.Wrapf(err, "deleting gs://%s/%s", s.bucket, k)
}
