package blobstore

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// FSStoreArgs contains fields parsed from the query arguments of a file://
// store URL.
type FSStoreArgs struct {
	// Sync flushes each image to stable storage before it is renamed into place.
	Sync bool
}

type fsStore struct {
	fs   afero.Fs
	args FSStoreArgs
}

// NewMemory returns a Store kept entirely in memory.
func NewMemory() Store {
	return &fsStore{fs: afero.NewMemMapFs()}
}

// NewFS returns a Store rooted at dir of fs.
func NewFS(fs afero.Fs, dir string) Store {
	return &fsStore{fs: afero.NewBasePathFs(fs, dir)}
}

func newFS(ep *url.URL) (Store, error) {
	var s = &fsStore{}
	if err := parseStoreArgs(ep, &s.args); err != nil {
		return nil, err
	}
	if ep.Path == "" {
		return nil, errors.New("file:// image store requires a directory path")
	}

	var osFs = afero.NewOsFs()
	if err := osFs.MkdirAll(ep.Path, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating image store directory %s", ep.Path)
	}
	s.fs = afero.NewBasePathFs(osFs, ep.Path)
	return s, nil
}

func (s *fsStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := CleanKey("/", key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o750); err != nil {
		return errors.Wrap(err, "creating image directory")
	}

	f, err := afero.TempFile(s.fs, path.Dir(p), ".partial-"+path.Base(p))
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func(name string) {
		if rmErr := s.fs.Remove(name); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("failed to cleanup temp file", "error", rmErr, "path", name)
		}
	}(f.Name())

	_, err = f.Write(data)
	if err == nil && s.args.Sync {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = s.fs.Rename(f.Name(), p)
	}
	return errors.Wrapf(err, "writing %s", key)
}

func (s *fsStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := CleanKey("/", key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	return data, errors.Wrapf(err, "reading %s", key)
}

func (s *fsStore) Delete(_ context.Context, key string) error {
	p, err := CleanKey("/", key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return errors.Wrapf(err, "removing %s", key)
	}
	return nil
}
