package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sony/gobreaker"
)

// ErrUploaderUnavailable is returned while the upload circuit is open.
var ErrUploaderUnavailable = errors.New("thumbnail uploads temporarily unavailable")

// ThumbnailUploader stores an image and returns its public URL.
type ThumbnailUploader interface {
	Upload(ctx context.Context, file io.Reader) (string, error)
}

// uploadFunc performs the actual upload; swapped out in tests.
type uploadFunc func(ctx context.Context, file io.Reader, folder string) (string, error)

// CloudinaryUploader uploads thumbnails to Cloudinary behind a circuit breaker.
type CloudinaryUploader struct {
	upload  uploadFunc
	folder  string
	breaker *gobreaker.CircuitBreaker
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	upload := func(ctx context.Context, file io.Reader, folder string) (string, error) {
		res, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
			Folder:       folder,
			ResourceType: "image",
		})
		if err != nil {
			return "", err
		}
		if res.Error.Message != "" {
			return "", errors.New(res.Error.Message)
		}
		return res.SecureURL, nil
	}
	return newCloudinaryUploader(upload, folder), nil
}

func newCloudinaryUploader(upload uploadFunc, folder string) *CloudinaryUploader {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cloudinary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &CloudinaryUploader{upload: upload, folder: folder, breaker: breaker}
}

func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader) (string, error) {
	result, err := u.breaker.Execute(func() (interface{}, error) {
		return u.upload(ctx, file, u.folder)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrUploaderUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return result.(string), nil
}

// State exposes the breaker state for the circuit breaker gauge.
func (u *CloudinaryUploader) State() gobreaker.State {
	return u.breaker.State()
}
