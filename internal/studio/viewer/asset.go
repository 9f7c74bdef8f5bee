package viewer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"product-studio/internal/settings/domain/model"

	"github.com/gofiber/fiber/v2"
	"github.com/qmuntal/gltf"
)

// defaultMaterialColor is the glTF default base color factor (opaque white)
const defaultMaterialColor = "#ffffff"

// Asset is a parsed model reduced to what the scene needs
type Asset struct {
	Meshes []AssetMesh
}

// AssetMesh is one glTF mesh with the materials its primitives use
type AssetMesh struct {
	Name      string
	Materials []AssetMaterial
}

// AssetMaterial is a material as authored in the asset
type AssetMaterial struct {
	Name      string
	BaseColor string
}

// GLTFLoader loads glTF and GLB assets from data URIs or http(s) locators
type GLTFLoader struct {
	Timeout time.Duration
}

// NewGLTFLoader creates a loader with a 30s fetch timeout for remote assets
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{Timeout: 30 * time.Second}
}

// Load implements Loader
func (l *GLTFLoader) Load(ctx context.Context, modelURL string) (*Asset, error) {
	data, err := l.fetch(ctx, modelURL)
	if err != nil {
		return nil, err
	}
	return ParseAsset(data)
}

func (l *GLTFLoader) fetch(ctx context.Context, modelURL string) ([]byte, error) {
	if model.IsDataURI(modelURL) {
		uri, err := model.ParseDataURI(modelURL)
		if err != nil {
			return nil, err
		}
		return uri.Data, nil
	}

	if !strings.HasPrefix(modelURL, "http://") && !strings.HasPrefix(modelURL, "https://") {
		return nil, fmt.Errorf("unsupported model reference %q", truncate(modelURL, 32))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Get(modelURL)
	if l.Timeout > 0 {
		agent.Timeout(l.Timeout)
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch model: %w", errs[0])
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("fetch model: unexpected status %d", status)
	}
	return body, nil
}

// ParseAsset decodes a glTF (JSON) or GLB (binary) document
func ParseAsset(data []byte) (*Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode glTF: %w", err)
	}

	materials := make([]AssetMaterial, len(doc.Materials))
	for i, m := range doc.Materials {
		materials[i] = AssetMaterial{Name: m.Name, BaseColor: baseColorHex(m)}
	}

	asset := &Asset{Meshes: make([]AssetMesh, 0, len(doc.Meshes))}
	for i, mesh := range doc.Meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", i)
		}
		am := AssetMesh{Name: name}
		for _, p := range mesh.Primitives {
			if p.Material != nil && int(*p.Material) < len(materials) {
				am.Materials = append(am.Materials, materials[int(*p.Material)])
				continue
			}
			am.Materials = append(am.Materials, AssetMaterial{Name: "default", BaseColor: defaultMaterialColor})
		}
		asset.Meshes = append(asset.Meshes, am)
	}
	return asset, nil
}

func baseColorHex(m *gltf.Material) string {
	if m == nil || m.PBRMetallicRoughness == nil || m.PBRMetallicRoughness.BaseColorFactor == nil {
		return defaultMaterialColor
	}
	f := m.PBRMetallicRoughness.BaseColorFactor
	return fmt.Sprintf("#%02x%02x%02x", channel(f[0]), channel(f[1]), channel(f[2]))
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
