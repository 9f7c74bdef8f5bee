package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"product-studio/internal/shared/errors"
)

// Snapshot defaults
const (
	DefaultBackgroundColor = "#1a1a2e"
	CurrentSchemaVersion   = 1

	// legacySchemaVersion marks documents written with the modelData blob field
	legacySchemaVersion = 0
)

// ConfigurationSnapshot is a persisted record of the display configuration at save time.
// Records are append-only: once inserted they are never updated.
type ConfigurationSnapshot struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SchemaVersion   int                `json:"schemaVersion" bson:"schemaVersion"`
	ModelURL        string             `json:"modelUrl" bson:"modelUrl"`
	BackgroundColor string             `json:"backgroundColor" bson:"backgroundColor"`
	IsWireframe     bool               `json:"isWireframe" bson:"isWireframe"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}

// NewConfigurationSnapshot builds an unsaved snapshot with defaults applied.
// An empty background falls back to DefaultBackgroundColor.
func NewConfigurationSnapshot(modelURL, backgroundColor string, isWireframe bool) *ConfigurationSnapshot {
	if backgroundColor == "" {
		backgroundColor = DefaultBackgroundColor
	}
	return &ConfigurationSnapshot{
		SchemaVersion:   CurrentSchemaVersion,
		ModelURL:        modelURL,
		BackgroundColor: backgroundColor,
		IsWireframe:     isWireframe,
	}
}

// Validate checks the snapshot invariants before it is written
func (s *ConfigurationSnapshot) Validate() error {
	ve := errors.NewValidationErrors()
	if s.ModelURL == "" {
		ve.Add("modelUrl", errors.ErrMissingModelReference.Error(), s.ModelURL)
	}
	if !IsValidCSSColor(s.BackgroundColor) {
		ve.Add("backgroundColor", errors.ErrInvalidColor.Error(), s.BackgroundColor)
	}
	if ve.HasErrors() {
		appErr := ve.ToAppError()
		appErr.Message = ve.Error()
		return appErr
	}
	return nil
}

// View is the shape returned by GET /settings and carried on the live feed
type View struct {
	ModelURL        string `json:"modelUrl"`
	BackgroundColor string `json:"backgroundColor"`
	IsWireframe     bool   `json:"isWireframe"`
}

// ToView strips storage metadata from the snapshot
func (s *ConfigurationSnapshot) ToView() View {
	return View{
		ModelURL:        s.ModelURL,
		BackgroundColor: s.BackgroundColor,
		IsWireframe:     s.IsWireframe,
	}
}

// storedSnapshot mirrors every field that has ever been written to the collection.
type storedSnapshot struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	SchemaVersion   *int               `bson:"schemaVersion,omitempty"`
	ModelURL        string             `bson:"modelUrl,omitempty"`
	ModelData       string             `bson:"modelData,omitempty"`
	BackgroundColor string             `bson:"backgroundColor,omitempty"`
	IsWireframe     bool               `bson:"isWireframe"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// UnmarshalBSON reads both the canonical schema and legacy documents that stored
// the encoded model under modelData. Legacy documents come back as schema version 0.
func (s *ConfigurationSnapshot) UnmarshalBSON(data []byte) error {
	var raw storedSnapshot
	if err := bson.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.ModelURL = raw.ModelURL
	s.BackgroundColor = raw.BackgroundColor
	s.IsWireframe = raw.IsWireframe
	s.CreatedAt = raw.CreatedAt

	switch {
	case raw.SchemaVersion != nil:
		s.SchemaVersion = *raw.SchemaVersion
	default:
		s.SchemaVersion = legacySchemaVersion
	}
	if s.ModelURL == "" && raw.ModelData != "" {
		s.ModelURL = raw.ModelData
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = DefaultBackgroundColor
	}
	return nil
}

// IsLegacy reports whether the snapshot was read from the pre-versioned schema
func (s *ConfigurationSnapshot) IsLegacy() bool {
	return s.SchemaVersion == legacySchemaVersion
}
