package utils

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/phillip/group-contributions-go/config"
)

// PublishedReport is where an uploaded report can be fetched from.
type PublishedReport struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// ReportPublisher stores rendered report files somewhere shareable.
type ReportPublisher interface {
	UploadReport(ctx context.Context, name string, r io.Reader) (*PublishedReport, error)
	DeleteReport(ctx context.Context, publicID string) error
}

type CloudinaryPublisher struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryPublisher(cfg *config.Config) (*CloudinaryPublisher, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &CloudinaryPublisher{cld: cld, folder: cfg.CloudinaryFolder}, nil
}

// UploadReport stores r as a raw asset named name inside the reports folder,
// replacing an earlier upload with the same name.
func (p *CloudinaryPublisher) UploadReport(ctx context.Context, name string, r io.Reader) (*PublishedReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := p.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       p.folder,
		PublicID:     name,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("upload error: %s", resp.Error.Message)
	}
	return &PublishedReport{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

func (p *CloudinaryPublisher) DeleteReport(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := p.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("delete error: %s", resp.Error.Message)
	}
	return nil
}
