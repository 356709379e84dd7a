package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchivePrefix is the object prefix bundles are uploaded under.
const ArchivePrefix = "archives"

const manifestFile = "manifest.json"

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "clipmd"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for archive uploads.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// BundlePrefix returns the object prefix for the article with the given ID.
func BundlePrefix(articleID string) string {
	return path.Join(ArchivePrefix, articleID)
}

// Manifest describes an uploaded bundle.
type Manifest struct {
	SourceURL  string   `json:"source_url"`
	ArchivedAt string   `json:"archived_at"`
	FileCount  int      `json:"file_count"`
	Files      []string `json:"files"` // object names relative to the bundle prefix
}

// PutFile writes a single object.
func (c *Client) PutFile(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", objectName, err)
	}
	return nil
}

// UploadBundle uploads every file below dir under prefix, keeping the
// relative layout (index.md, media/1.jpg, ...). It returns the relative
// names of the uploaded files.
func (c *Client) UploadBundle(ctx context.Context, prefix, dir string) ([]string, error) {
	var uploaded []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if err := c.putLocalFile(ctx, path.Join(prefix, rel), p); err != nil {
			return err
		}
		uploaded = append(uploaded, rel)
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("failed to upload bundle %s: %w", dir, err)
	}
	return uploaded, nil
}

func (c *Client) putLocalFile(ctx context.Context, objectName, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return c.PutFile(ctx, objectName, f, info.Size(), ContentType(localPath))
}

// PutManifest writes the bundle manifest JSON.
func (c *Client) PutManifest(ctx context.Context, prefix string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return c.PutFile(ctx, path.Join(prefix, manifestFile), bytes.NewReader(data), int64(len(data)), "application/json")
}

// GetManifest reads a bundle manifest.
func (c *Client) GetManifest(ctx context.Context, prefix string) (*Manifest, error) {
	data, err := c.GetFile(ctx, path.Join(prefix, manifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// GetFile reads an object.
func (c *Client) GetFile(ctx context.Context, objectName string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return data, nil
}

// ListFiles returns all object names under a prefix, relative to it.
func (c *Client) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	var files []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		files = append(files, strings.TrimPrefix(object.Key, prefix))
	}

	return files, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

var contentTypes = map[string]string{
	".md":   "text/markdown; charset=utf-8",
	".json": "application/json",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// ContentType guesses the object content type from a file name.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
