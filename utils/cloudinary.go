package utils

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrUploadsDisabled = errors.New("file uploads are not configured")

// CloudinaryUploader stores clinic documents and returns their secure URL.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	preset string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, preset string) (*CloudinaryUploader, error) {
	if cloudName == "" {
		return &CloudinaryUploader{}, nil
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("initialising cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, preset: preset}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, publicID, folder string) (string, error) {
	if u.cld == nil {
		return "", ErrUploadsDisabled
	}
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       folder,
		UploadPreset: u.preset,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("uploading %s: %s", publicID, resp.Error.Message)
	}
	return resp.SecureURL, nil
}
