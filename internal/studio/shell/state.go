// Package shell holds the studio's client-side state and the actions that change it.
//
// State is a plain value. Every action takes the current State and returns the
// next one; Shell owns the single State of a session and runs the side effects
// (backend calls, notifications) around those actions.
package shell

import (
	"fmt"

	"product-studio/internal/studio/viewer"

	"github.com/google/uuid"
)

// Lighting presets offered by the studio
var LightingPresets = []string{"city", "sunset", "dawn", "apartment", "studio"}

// State defaults
const (
	DefaultBackground = viewer.DefaultBackground
	DefaultMeshTint   = viewer.DefaultMeshTint
	DefaultLighting   = viewer.DefaultLighting
)

// Hotspot is a user-placed annotation on the model surface. Hotspots live only in memory.
type Hotspot struct {
	ID       string      `json:"id"`
	Position viewer.Vec3 `json:"position"`
	Label    string      `json:"label"`
}

// State is the complete view state of one studio session
type State struct {
	ModelURL        string
	BackgroundColor string
	MeshTint        string
	IsWireframe     bool
	Lighting        string
	Uploading       bool
	Hotspots        []Hotspot
}

// NewState returns the state of a freshly opened studio
func NewState() State {
	return State{
		BackgroundColor: DefaultBackground,
		MeshTint:        DefaultMeshTint,
		Lighting:        DefaultLighting,
	}
}

// SettingsPayload is the persisted part of State
type SettingsPayload struct {
	ModelURL        string `json:"modelUrl"`
	BackgroundColor string `json:"backgroundColor"`
	IsWireframe     bool   `json:"isWireframe"`
}

// Settings extracts what a save sends to the backend
func (s State) Settings() SettingsPayload {
	return SettingsPayload{
		ModelURL:        s.ModelURL,
		BackgroundColor: s.BackgroundColor,
		IsWireframe:     s.IsWireframe,
	}
}

// SeedFromSnapshot adopts a loaded snapshot. Snapshots without a model are ignored.
// Tint and lighting are not persisted, so they go back to their defaults.
func SeedFromSnapshot(s State, snapshot *SettingsPayload) State {
	if snapshot == nil || snapshot.ModelURL == "" {
		return s
	}
	s.ModelURL = snapshot.ModelURL
	if snapshot.BackgroundColor != "" {
		s.BackgroundColor = snapshot.BackgroundColor
	}
	s.IsWireframe = snapshot.IsWireframe
	s.MeshTint = DefaultMeshTint
	s.Lighting = DefaultLighting
	return s
}

// SetBackground changes the viewer background color
func SetBackground(s State, color string) State {
	s.BackgroundColor = color
	return s
}

// SetMeshTint changes the tint applied to every mesh outside wireframe mode
func SetMeshTint(s State, color string) State {
	s.MeshTint = color
	return s
}

// ToggleWireframe flips wireframe rendering. The tint is kept and reapplied when it is turned off.
func ToggleWireframe(s State) State {
	s.IsWireframe = !s.IsWireframe
	return s
}

// SetLighting selects an environment preset
func SetLighting(s State, preset string) (State, error) {
	for _, p := range LightingPresets {
		if p == preset {
			s.Lighting = preset
			return s, nil
		}
	}
	return s, fmt.Errorf("unknown lighting preset %q", preset)
}

// BeginUpload marks an upload as in flight
func BeginUpload(s State) State {
	s.Uploading = true
	return s
}

// UploadSucceeded adopts the uploaded model. Hotspots belonged to the previous model and are dropped.
func UploadSucceeded(s State, modelURL string) State {
	s.Uploading = false
	s.ModelURL = modelURL
	s.Hotspots = nil
	return s
}

// UploadFailed clears the in-flight flag and leaves everything else untouched
func UploadFailed(s State) State {
	s.Uploading = false
	return s
}

// AddHotspot appends a hotspot labelled "Point n" at point. Existing hotspots are never changed.
func AddHotspot(s State, point viewer.Vec3) State {
	hotspots := make([]Hotspot, len(s.Hotspots), len(s.Hotspots)+1)
	copy(hotspots, s.Hotspots)
	s.Hotspots = append(hotspots, Hotspot{
		ID:       uuid.NewString(),
		Position: point,
		Label:    fmt.Sprintf("Point %d", len(s.Hotspots)+1),
	})
	return s
}

// ViewerParams maps State onto the viewer's inputs
func (s State) ViewerParams() viewer.Params {
	return viewer.Params{
		ModelURL:   s.ModelURL,
		Background: s.BackgroundColor,
		Wireframe:  s.IsWireframe,
		MeshTint:   s.MeshTint,
		Lighting:   s.Lighting,
	}
}

// Markers returns one viewer marker per hotspot, in insertion order
func (s State) Markers() []viewer.Marker {
	markers := make([]viewer.Marker, 0, len(s.Hotspots))
	for _, h := range s.Hotspots {
		markers = append(markers, viewer.Marker{ID: h.ID, Label: h.Label, Position: h.Position})
	}
	return markers
}
