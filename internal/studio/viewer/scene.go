// Package viewer describes what a renderer front-end draws for the studio.
// It holds no renderer; Compose turns display parameters into a Scene that a
// WebGL or native renderer can consume as-is.
package viewer

import (
	"context"
	"fmt"
)

// Scene defaults
const (
	DefaultFOV        = 45.0
	DefaultBackground = "#1a1a2e"
	DefaultMeshTint   = "#ffffff"
	DefaultLighting   = "city"
)

// Vec3 is a point in model space
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Params are the display settings the viewer is driven by
type Params struct {
	ModelURL   string
	Background string
	Wireframe  bool
	MeshTint   string
	Lighting   string
}

// Marker is a labelled annotation rendered at a fixed position
type Marker struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Position Vec3   `json:"position"`
}

// Material is the render state of one mesh material
type Material struct {
	Name string `json:"name"`
	// BaseColor is the color authored in the asset; it is shown while wireframe is on.
	BaseColor string `json:"baseColor"`
	Color     string `json:"color"`
	Wireframe bool   `json:"wireframe"`
}

// Mesh is one drawable mesh of the loaded asset
type Mesh struct {
	Name      string     `json:"name"`
	Materials []Material `json:"materials"`
}

// Camera is the initial camera; orbit, pan and zoom belong to the renderer
type Camera struct {
	FOV          float64 `json:"fov"`
	OrbitEnabled bool    `json:"orbitEnabled"`
}

// Scene is everything a renderer needs for one frame of the studio
type Scene struct {
	Background  string   `json:"background"`
	Environment string   `json:"environment"`
	Placeholder bool     `json:"placeholder"`
	ModelURL    string   `json:"modelUrl,omitempty"`
	Meshes      []Mesh   `json:"meshes"`
	Markers     []Marker `json:"markers"`
	Camera      Camera   `json:"camera"`
}

// HasModel reports whether the scene renders an asset that can be picked
func (s *Scene) HasModel() bool {
	return s != nil && !s.Placeholder
}

// Loader resolves a model reference into its meshes
type Loader interface {
	Load(ctx context.Context, modelURL string) (*Asset, error)
}

// Compose builds the scene for params. Without a model reference it returns a
// placeholder scene and never calls the loader.
func Compose(ctx context.Context, params Params, markers []Marker, loader Loader) (*Scene, error) {
	scene := &Scene{
		Background:  orDefault(params.Background, DefaultBackground),
		Environment: orDefault(params.Lighting, DefaultLighting),
		Markers:     append([]Marker(nil), markers...),
		Camera:      Camera{FOV: DefaultFOV, OrbitEnabled: true},
	}

	if params.ModelURL == "" {
		scene.Placeholder = true
		return scene, nil
	}

	asset, err := loader.Load(ctx, params.ModelURL)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	scene.ModelURL = params.ModelURL
	scene.Meshes = applyMaterials(asset, params.Wireframe, orDefault(params.MeshTint, DefaultMeshTint))
	return scene, nil
}

// applyMaterials sets wireframe on every material and the tint only when wireframe is off.
// The asset is not modified.
func applyMaterials(asset *Asset, wireframe bool, tint string) []Mesh {
	meshes := make([]Mesh, 0, len(asset.Meshes))
	for _, src := range asset.Meshes {
		mesh := Mesh{Name: src.Name, Materials: make([]Material, 0, len(src.Materials))}
		for _, m := range src.Materials {
			color := tint
			if wireframe {
				color = m.BaseColor
			}
			mesh.Materials = append(mesh.Materials, Material{
				Name:      m.Name,
				BaseColor: m.BaseColor,
				Color:     color,
				Wireframe: wireframe,
			})
		}
		meshes = append(meshes, mesh)
	}
	return meshes
}

// Pick forwards a click on the rendered asset to fn. Clicks on a placeholder
// scene are ignored and Pick returns false.
func Pick(scene *Scene, point Vec3, fn func(Vec3)) bool {
	if !scene.HasModel() || fn == nil {
		return false
	}
	fn(point)
	return true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
