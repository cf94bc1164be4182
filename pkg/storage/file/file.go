package file

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

type File struct{}

func New() *File {
	return &File{}
}

func (f *File) Pull(creds credentials.Creds, u url.URL, target string) (int64, error) {
	return copyFile(u.Path, target)
}

func (f *File) Push(creds credentials.Creds, u url.URL, target, source string) (int64, error) {
	if err := os.MkdirAll(u.Path, 0o755); err != nil {
		return 0, err
	}
	return copyFile(source, filepath.Join(u.Path, target))
}

func (f *File) Rename(creds credentials.Creds, u url.URL, from, to string) error {
	err := os.Rename(filepath.Join(u.Path, from), filepath.Join(u.Path, to))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// copyFile copy a file from to as efficiently as possible
func copyFile(from, to string) (int64, error) {
	src, err := os.Open(from)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}
