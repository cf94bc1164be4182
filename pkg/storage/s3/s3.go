package s3

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

type S3 struct{}

func New() *S3 {
	return &S3{}
}

func newSession(creds credentials.Creds) (*session.Session, error) {
	opts := session.Options{}
	if creds.AWSEndpoint != "" {
		opts.Config.Endpoint = aws.String(creds.AWSEndpoint)
	}
	if creds.AWSRegion != "" {
		opts.Config.Region = aws.String(creds.AWSRegion)
	}
	if creds.AWSPathStyle {
		opts.Config.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}
	return sess, nil
}

func objectKey(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}

func (s *S3) Pull(creds credentials.Creds, u url.URL, target string) (int64, error) {
	bucket, key := u.Hostname(), objectKey(u.Path)
	sess, err := newSession(creds)
	if err != nil {
		return 0, err
	}

	// Create a downloader with the session and default options
	downloader := s3manager.NewDownloader(sess)

	// Create a file to write the S3 Object contents to.
	f, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create target restore file %q, %v", target, err)
	}
	defer f.Close()

	// Write the contents of S3 Object to the file
	n, err := downloader.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download file, %v", err)
	}
	return n, nil
}

func (s *S3) Push(creds credentials.Creds, u url.URL, target, source string) (int64, error) {
	bucket, key := u.Hostname(), objectKey(u.Path, target)
	sess, err := newSession(creds)
	if err != nil {
		return 0, err
	}

	// Create an uploader with the session and default options
	uploader := s3manager.NewUploader(sess)

	f, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("failed to read input file %q, %v", source, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat input file %q, %v", source, err)
	}

	// Write the contents of the file to the S3 object
	_, err = uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload file, %v", err)
	}
	return info.Size(), nil
}

// Rename copies the object to its new key and deletes the old one; S3 has no
// native move.
func (s *S3) Rename(creds credentials.Creds, u url.URL, from, to string) error {
	bucket := u.Hostname()
	fromKey, toKey := objectKey(u.Path, from), objectKey(u.Path, to)
	sess, err := newSession(creds)
	if err != nil {
		return err
	}
	client := s3.New(sess)

	if _, err := client.HeadObject(&s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(fromKey)}); err != nil {
		if isNotFound(err) {
			log.Debugf("nothing to rename at s3://%s/%s", bucket, fromKey)
			return nil
		}
		return fmt.Errorf("failed to inspect %s: %v", fromKey, err)
	}
	source := (&url.URL{Path: bucket + "/" + fromKey}).EscapedPath()
	if _, err := client.CopyObject(&s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(source),
		Key:        aws.String(toKey),
	}); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %v", fromKey, toKey, err)
	}
	if _, err := client.DeleteObject(&s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(fromKey)}); err != nil {
		return fmt.Errorf("failed to delete %s: %v", fromKey, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
