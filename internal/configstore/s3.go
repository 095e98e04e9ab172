package configstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// S3API is the client surface used by S3Store. *s3.Client satisfies it.
type S3API interface {
	manager.DownloadAPIClient
	manager.UploadAPIClient
}

// S3Store reads <prefix>/types.json and <prefix>/filters.json from a bucket. The documents use the
// JSONStore format.
type S3Store struct {
	client     S3API
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// NewS3Store creates a store over bucket/prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     prefix,
	}
}

func (s *S3Store) key(docName string) string {
	return path.Join(s.prefix, docName+".json")
}

// OpenNode implements filterdetect.ConfigurationProvider.
func (s *S3Store) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	docName, ok := DocumentForNode(nodePath)
	if !ok {
		return nil, filterdetect.NewNodeNotFoundError(nodePath)
	}
	key := s.key(docName)

	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("key", key)
		}
		return nil, filterdetect.NewStoreUnavailableError(fmt.Sprintf("failed to download s3://%s/%s", s.bucket, key), err)
	}

	node, err := DecodeJSONDocument(nodePath, buf.Bytes())
	if err != nil {
		return nil, filterdetect.NewInvalidDocumentError("s3://"+s.bucket+"/"+key, err)
	}
	zap.S().Debugw("loaded configuration document from s3", "bucket", s.bucket, "key", key, "entry_count", node.Len())
	return node, nil
}

// Upload writes one document per node.
func (s *S3Store) Upload(ctx context.Context, nodes []*Node) error {
	uploader := manager.NewUploader(s.client)
	for _, n := range nodes {
		docName, ok := DocumentForNode(n.Path)
		if !ok {
			continue
		}
		data, err := EncodeJSONDocument(n)
		if err != nil {
			return err
		}
		key := s.key(docName)
		if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return fmt.Errorf("s3 upload %s: %w", key, err)
		}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
