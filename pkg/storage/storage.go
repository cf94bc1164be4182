package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xiagw/mysql-export/pkg/storage/credentials"
	"github.com/xiagw/mysql-export/pkg/storage/file"
	"github.com/xiagw/mysql-export/pkg/storage/s3"
	"github.com/xiagw/mysql-export/pkg/storage/smb"
)

// Storage moves artifacts between the local disk and a target location.
// For Push and Rename, u is the directory; for Pull it is the object itself.
type Storage interface {
	Push(creds credentials.Creds, u url.URL, target, source string) (int64, error)
	Pull(creds credentials.Creds, u url.URL, target string) (int64, error)
	// Rename moves from to to inside u, replacing to. A missing from is not an error.
	Rename(creds credentials.Creds, u url.URL, from, to string) error
}

// ParseURL parses a target, treating a bare path as a local file URL.
func ParseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		return &url.URL{Scheme: "file", Path: raw}, nil
	}
	return url.Parse(raw)
}

// ForURL returns the storage for a URL scheme.
func ForURL(u *url.URL) (Storage, error) {
	switch u.Scheme {
	case "file":
		return file.New(), nil
	case "smb":
		return smb.New(), nil
	case "s3":
		return s3.New(), nil
	default:
		return nil, fmt.Errorf("unknown url protocol: %s", u.Scheme)
	}
}
