package usecase

import (
	"context"
	"encoding/hex"

	"product-studio/internal/settings/domain/model"
	"product-studio/internal/settings/domain/repository"
	"product-studio/internal/shared/errors"
	"product-studio/internal/shared/eventbus"
	"product-studio/internal/shared/logger"

	"golang.org/x/crypto/blake2b"
)

// UploadUsecase encodes uploaded model files into data URIs. It stores nothing.
type UploadUsecase struct {
	policy repository.UploadPolicy
	events eventbus.Publisher
	logger logger.Logger
}

// NewUploadUsecase creates the upload handler logic; a nil policy accepts every file
func NewUploadUsecase(p repository.UploadPolicy, events eventbus.Publisher, log logger.Logger) *UploadUsecase {
	return &UploadUsecase{
		policy: p,
		events: events,
		logger: log.WithComponent("upload-usecase"),
	}
}

var _ UploadUsecaseInterface = (*UploadUsecase)(nil)

// Encode checks the upload policy, then base64-encodes the bytes with their declared MIME type
func (uc *UploadUsecase) Encode(ctx context.Context, req UploadRequest) (*model.UploadedAsset, error) {
	log := uc.logger.WithContext(ctx)
	uri := model.NewDataURI(req.MimeType, req.Data)

	if uc.policy != nil {
		allowed, err := uc.policy.Allows(model.UploadCandidate{
			Name:     req.FileName,
			MimeType: uri.MimeType,
			Size:     int64(len(req.Data)),
		})
		if err != nil {
			log.Errorf("Upload policy evaluation failed: %v", err)
			return nil, errors.NewInternalError("upload policy evaluation failed").WithCause(err)
		}
		if !allowed {
			log.Warnf("Upload %q (%s) rejected by policy", req.FileName, uri.MimeType)
			return nil, errors.NewUnsupportedError(errors.ErrUploadRejected.Error()).
				WithDetail("fileName", req.FileName).
				WithDetail("mimeType", uri.MimeType)
		}
	}

	sum := blake2b.Sum256(req.Data)
	asset := &model.UploadedAsset{
		URL:      uri.String(),
		MimeType: uri.MimeType,
		Size:     int64(len(req.Data)),
		Digest:   hex.EncodeToString(sum[:]),
	}

	log.WithFields(map[string]interface{}{
		"fileName": req.FileName,
		"mimeType": asset.MimeType,
		"size":     asset.Size,
		"digest":   asset.Digest,
	}).Info("Model encoded")

	if uc.events != nil {
		uc.events.PublishAndForget(ctx, eventbus.NewBasicEvent(eventbus.EventTypeModelUploaded, model.UploadReceipt{
			FileName: req.FileName,
			MimeType: asset.MimeType,
			Size:     asset.Size,
			Digest:   asset.Digest,
		}, "upload-usecase"))
	}
	return asset, nil
}
