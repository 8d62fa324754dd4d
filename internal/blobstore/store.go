// Package blobstore stores card images behind a URL-selected backend:
//
//	mem://                              in-process (development, tests)
//	file:///var/lib/futdraw/images      local filesystem
//	s3://bucket/prefix/?region=us-east-1&endpoint=http://minio:9000
//	gs://bucket/prefix/
package blobstore

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get and Delete for missing keys.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value store of image bytes. Keys use forward slashes.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Open constructs the Store selected by rawURL's scheme.
func Open(ctx context.Context, rawURL string) (Store, error) {
	ep, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing image store URL %q", rawURL)
	}

	switch ep.Scheme {
	case "mem":
		return NewMemory(), nil
	case "file":
		return newFS(ep)
	case "s3":
		return newS3(ep)
	case "gs":
		return newGCS(ctx, ep)
	default:
		return nil, errors.Errorf("unsupported image store scheme %q (valid: mem, file, s3, gs)", ep.Scheme)
	}
}

// ImageKey is the storage key of a player's card image.
func ImageKey(owner, playerID string) string {
	return owner + "/" + playerID + ".png"
}

// CleanKey validates a key and joins it under prefix.
func CleanKey(prefix, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", errors.Errorf("invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", errors.Errorf("invalid key %q", key)
		}
	}
	return path.Join(prefix, key), nil
}

func parseStoreArgs(ep *url.URL, args interface{}) error {
	var decoder = schema.NewDecoder()
	decoder.IgnoreUnknownKeys(false)

	if q, err := url.ParseQuery(ep.RawQuery); err != nil {
		return err
	} else if err = decoder.Decode(args, q); err != nil {
		return errors.Wrap(err, "parsing store URL arguments")
	}
	return nil
}
