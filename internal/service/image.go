package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
)

const (
	maxImageBytes = 10 << 20
	imagePrefix   = "recipes/"
)

var (
	errInvalidImage  = errors.New("upload a valid image")
	errImageTooLarge = fmt.Errorf("image exceeds %d bytes", maxImageBytes)
)

// rasterTypes are the accepted upload formats. Vector formats such as SVG can
// carry scripts and are served from the API origin, so they are refused.
var rasterTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DecodedImage is an uploaded image after base64 decoding and type sniffing.
type DecodedImage struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeImage accepts a data URI (data:image/png;base64,...) or bare base64
// and checks that the payload really is an image.
func DecodeImage(raw string) (*DecodedImage, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, errInvalidImage
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, errInvalidImage
		}
		payload = payload[comma+1:]
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > maxImageBytes+2 {
		return nil, errImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, errInvalidImage
		}
	}
	if len(data) == 0 {
		return nil, errInvalidImage
	}
	if len(data) > maxImageBytes {
		return nil, errImageTooLarge
	}

	mtype := mimetype.Detect(data)
	if !rasterTypes[mtype.String()] {
		return nil, errInvalidImage
	}

	return &DecodedImage{
		Data:        data,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
	}, nil
}

func newImageKey(img *DecodedImage) string {
	return imagePrefix + uuid.New().String() + img.Extension
}

// S3API is the part of the S3 client the image store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore keeps recipe images in an S3 bucket.
type S3ImageStore struct {
	client    S3API
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewS3ImageStore(client S3API, bucket, publicURL string, logger *zap.Logger) *S3ImageStore {
	return &S3ImageStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// NewS3ImageStoreFromConfig builds the store from a configured S3 client.
func NewS3ImageStoreFromConfig(cfg *config.S3Config, publicURL string, logger *zap.Logger) *S3ImageStore {
	return NewS3ImageStore(cfg.Client, cfg.BucketName, publicURL, logger)
}

func (s *S3ImageStore) Save(ctx context.Context, img *DecodedImage) (string, error) {
	key := newImageKey(img)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Debug("Uploaded image to S3", zap.String("bucket", s.bucket), zap.String("key", key))
	return key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3ImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// DiskImageStore writes images under a local directory served at publicURL.
type DiskImageStore struct {
	dir       string
	publicURL string
}

func NewDiskImageStore(dir, publicURL string) *DiskImageStore {
	if publicURL == "" {
		publicURL = "/media"
	}
	return &DiskImageStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *DiskImageStore) Dir() string {
	return s.dir
}

func (s *DiskImageStore) Save(_ context.Context, img *DecodedImage) (string, error) {
	key := newImageKey(img)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func (s *DiskImageStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicURL + "/" + key
}
