package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/adoteiftm/adote-backend/pkg/utils"
)

// MaxImageBytes bounds an uploaded listing photo.
const MaxImageBytes = 8 << 20

// StoredImage is where a listing photo ended up: inline base64 or a URL.
type StoredImage struct {
	Inline string
	URL    string
}

// ImageStore persists listing photos.
type ImageStore interface {
	Store(ctx context.Context, data []byte) (StoredImage, error)
}

// ValidateImage rejects empty, oversized and non-image payloads.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return &utils.ValidationError{Field: "image", Message: "image is required"}
	}
	if len(data) > MaxImageBytes {
		return &utils.ValidationError{Field: "image", Message: "image is too large"}
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return &utils.ValidationError{Field: "image", Message: "image must be an image file"}
	}
	return nil
}

// InlineImages keeps the photo inside the post document as base64, the way
// the original web client expects to render it.
type InlineImages struct{}

func (InlineImages) Store(_ context.Context, data []byte) (StoredImage, error) {
	return StoredImage{Inline: base64.StdEncoding.EncodeToString(data)}, nil
}

// cloudinaryUploader is the part of the Cloudinary upload API we use.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryImages uploads photos to Cloudinary and stores only the secure URL.
type CloudinaryImages struct {
	upload cloudinaryUploader
	folder string
}

func NewCloudinaryImages(cloudName, apiKey, apiSecret, folder string) (*CloudinaryImages, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryImages{upload: &cld.Upload, folder: folder}, nil
}

func (s *CloudinaryImages) Store(ctx context.Context, data []byte) (StoredImage, error) {
	res, err := s.upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return StoredImage{}, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res == nil || res.Error.Message != "" {
		msg := "empty response"
		if res != nil {
			msg = res.Error.Message
		}
		return StoredImage{}, fmt.Errorf("failed to upload to Cloudinary: %s", msg)
	}
	return StoredImage{URL: res.SecureURL}, nil
}
