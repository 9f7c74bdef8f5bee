package repository

import "product-studio/internal/settings/domain/model"

// UploadPolicy decides whether an uploaded file may be encoded
type UploadPolicy interface {
	Allows(candidate model.UploadCandidate) (bool, error)
}
