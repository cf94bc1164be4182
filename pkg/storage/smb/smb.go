package smb

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/hirochachacha/go-smb2"
	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

const defaultPort = "445"

type SMB struct{}

func New() *SMB {
	return &SMB{}
}

func (s *SMB) Pull(creds credentials.Creds, u url.URL, target string) (int64, error) {
	var n int64
	err := withShare(creds, u, func(fs *smb2.Share, sharepath string) error {
		to, err := os.Create(target)
		if err != nil {
			return err
		}
		defer to.Close()
		from, err := fs.Open(sharepath)
		if err != nil {
			return err
		}
		defer from.Close()
		n, err = io.Copy(to, from)
		return err
	})
	return n, err
}

func (s *SMB) Push(creds credentials.Creds, u url.URL, target, source string) (int64, error) {
	var n int64
	err := withShare(creds, u, func(fs *smb2.Share, sharepath string) error {
		from, err := os.Open(source)
		if err != nil {
			return err
		}
		defer from.Close()
		to, err := fs.Create(remotePath(sharepath, target))
		if err != nil {
			return err
		}
		defer to.Close()
		n, err = io.Copy(to, from)
		return err
	})
	return n, err
}

func (s *SMB) Rename(creds credentials.Creds, u url.URL, from, to string) error {
	return withShare(creds, u, func(fs *smb2.Share, sharepath string) error {
		src, dst := remotePath(sharepath, from), remotePath(sharepath, to)
		if _, err := fs.Stat(src); err != nil {
			log.Debugf("nothing to rename at %s: %v", src, err)
			return nil
		}
		// smb rename does not replace an existing file
		_ = fs.Remove(dst)
		return fs.Rename(src, dst)
	})
}

func withShare(creds credentials.Creds, u url.URL, fn func(fs *smb2.Share, sharepath string) error) error {
	hostname, path := u.Hostname(), u.Path
	share, sharepath := parseSMBPath(strings.TrimPrefix(path, "/"))
	username, password := parseSMBCredentials(creds.SMBCredentials, u)
	user, domain := parseSMBDomain(username)

	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(hostname, port))
	if err != nil {
		return err
	}
	defer conn.Close()

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     user,
			Password: password,
			Domain:   domain,
		},
	}

	s, err := d.Dial(conn)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.Logoff()
	}()

	fs, err := s.Mount(share)
	if err != nil {
		return err
	}
	defer func() {
		_ = fs.Umount()
	}()
	return fn(fs, sharepath)
}

// parseSMBCredentials prefers explicit user%password credentials over the URL userinfo
func parseSMBCredentials(smbCreds string, u url.URL) (username, password string) {
	if smbCreds != "" {
		parts := strings.SplitN(smbCreds, "%", 2)
		switch len(parts) {
		case 1:
			username = parts[0]
		case 2:
			username, password = parts[0], parts[1]
		}
	}
	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	return username, password
}

// parseSMBDomain parse a username to get an SMB domain
func parseSMBDomain(username string) (user, domain string) {
	parts := strings.SplitN(username, ";", 2)
	if len(parts) < 2 {
		return username, ""
	}
	// if we reached this point, we have a username that has a domain in it
	return parts[1], parts[0]
}

// parseSMBPath parse an smb path into its constituent parts
func parseSMBPath(path string) (share, sharepath string) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) <= 1 {
		return path, ""
	}
	return parts[0], parts[1]
}

func remotePath(sharepath, name string) string {
	name = strings.ReplaceAll(name, ":", "-")
	if sharepath == "" {
		return name
	}
	return fmt.Sprintf("%s%c%s", strings.TrimSuffix(sharepath, "/"), smb2.PathSeparator, name)
}
