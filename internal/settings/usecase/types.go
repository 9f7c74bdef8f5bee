package usecase

import (
	"context"

	"product-studio/internal/settings/domain/model"
)

// SaveSettingsRequest carries the fields a client submits when saving
type SaveSettingsRequest struct {
	ModelURL        string `json:"modelUrl"`
	BackgroundColor string `json:"backgroundColor"`
	IsWireframe     bool   `json:"isWireframe"`
}

// UploadRequest is one uploaded model file, fully buffered
type UploadRequest struct {
	FileName string
	MimeType string
	Data     []byte
}

// SettingsUsecaseInterface is the Settings Service
type SettingsUsecaseInterface interface {
	Save(ctx context.Context, req SaveSettingsRequest) (*model.ConfigurationSnapshot, error)
	// GetLatest returns (nil, nil) when nothing has been saved yet.
	GetLatest(ctx context.Context) (*model.ConfigurationSnapshot, error)
	HealthCheck(ctx context.Context) error
}

// UploadUsecaseInterface turns uploaded bytes into an inline model reference
type UploadUsecaseInterface interface {
	Encode(ctx context.Context, req UploadRequest) (*model.UploadedAsset, error)
}
