package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/noah-isme/assignment-portal-api/pkg/config"
)

// CloudinaryStore implements Store on top of the Cloudinary upload API.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds a store from a CLOUDINARY_URL style DSN.
func NewCloudinary(cfg config.MediaConfig) (*CloudinaryStore, error) {
	if cfg.CloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary url not configured")
	}
	client, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	folder := cfg.UploadFolder
	if folder == "" {
		folder = "submissions"
	}
	return &CloudinaryStore{client: client, folder: folder}, nil
}

// Upload stores the file and returns its delivery URL and public ID.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, filename string) (*Upload, error) {
	publicID := uuid.NewString()
	if base := sanitizeBase(filename); base != "" {
		publicID = base + "-" + publicID
	}

	res, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("upload file: %s", res.Error.Message)
	}

	return &Upload{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Delete removes a previously uploaded file.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	res, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("delete file: %s", res.Result)
	}
	return nil
}

func sanitizeBase(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return strings.Trim(base, "-")
}
