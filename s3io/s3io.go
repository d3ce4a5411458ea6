// Package s3io lets the solver's input/output paths transparently name
// objects in S3 ("s3://bucket/key") alongside ordinary local paths, so a
// daemon run can pull a rectified pair from object storage and push the
// resulting disparity map back without a separate sync step. Adapted from
// the progress-reporting, context-cancelable download loop used for
// dependency archives in this author's prior project, swapping the
// plain-HTTP transport for an S3 client.
package s3io

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const scheme = "s3://"

// ByteProgressCallback reports (downloaded, total) bytes transferred so
// far; total is -1 if the object's size is unknown ahead of time.
type ByteProgressCallback func(downloaded, total int64)

// IsURI reports whether path names an S3 object rather than a local file.
func IsURI(path string) bool { return strings.HasPrefix(path, scheme) && len(path) > len(scheme) }

// ParseURI splits "s3://bucket/key/with/slashes" into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("s3io: %q is not an s3:// URI", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("s3io: %q must be s3://bucket/key", uri)
	}
	return parts[0], parts[1], nil
}

// Client wraps an S3 client built from the process's default AWS
// credential chain (environment, shared config, or container/instance
// role), matching how a backend service is expected to authenticate
// rather than taking an access key on the command line.
type Client struct {
	s3 *s3.Client
}

// NewClient loads the default AWS configuration and returns a Client.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3io: loading AWS config: %w", err)
	}
	return &Client{s3: s3.NewFromConfig(cfg)}, nil
}

// Download fetches the object named by uri to destPath, reporting progress
// through progressCb if non-nil.
func (c *Client) Download(ctx context.Context, uri, destPath string, progressCb ByteProgressCallback) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("s3io: GetObject %s: %w", uri, err)
	}
	defer out.Body.Close()

	total := int64(-1)
	if out.ContentLength != nil {
		total = *out.ContentLength
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("s3io: creating %s: %w", destPath, err)
	}
	defer f.Close()

	downloaded := int64(0)
	buf := make([]byte, 32*1024)
	lastReport := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := out.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("s3io: writing %s: %w", destPath, werr)
			}
			downloaded += int64(n)
			if progressCb != nil && time.Since(lastReport) >= 100*time.Millisecond {
				progressCb(downloaded, total)
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("s3io: reading object body: %w", readErr)
		}
	}
	if progressCb != nil {
		progressCb(downloaded, total)
	}
	return nil
}

// Upload puts the contents of srcPath to the object named by uri.
func (c *Client) Upload(ctx context.Context, srcPath, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("s3io: opening %s: %w", srcPath, err)
	}
	defer f.Close()

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: f})
	if err != nil {
		return fmt.Errorf("s3io: PutObject %s: %w", uri, err)
	}
	return nil
}

// Resolve returns a local path for src: if src is an s3:// URI, it is
// downloaded into dir first and the local copy's path is returned.
// Otherwise src is returned unchanged.
func (c *Client) Resolve(ctx context.Context, src, dir string) (string, error) {
	if !IsURI(src) {
		return src, nil
	}
	_, key, err := ParseURI(src)
	if err != nil {
		return "", err
	}
	dest := dir + "/" + sanitizeKey(key)
	if err := c.Download(ctx, src, dest, nil); err != nil {
		return "", err
	}
	return dest, nil
}

func sanitizeKey(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}
