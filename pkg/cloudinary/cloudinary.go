// Package cloudinary stores courier documents (CNH scans, vehicle papers) on Cloudinary.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads a file and returns its HTTPS URL.
type Client interface {
	UploadDocument(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

// ErrNotConfigured is returned by the disabled client.
var ErrNotConfigured = errors.New("cloudinary is not configured")

// Image documents are normalized on upload; PDFs pass through untouched.
const documentEager = "q_auto,f_auto,w_1600,c_limit"

var eagerAsyncFalse = false

type clientImpl struct {
	uploader *uploader.API
}

func (c *clientImpl) UploadDocument(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
		Eager:        documentEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
// With any of them empty it returns a client whose uploads fail with ErrNotConfigured.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return disabled{}, nil
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{uploader: up}, nil
}

type disabled struct{}

func (disabled) UploadDocument(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrNotConfigured
}
