package client

import (
	"bytes"
	"context"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"product-studio/internal/settings"
	httpadapter "product-studio/internal/settings/adapter/http"
	settingsconfig "product-studio/internal/settings/config"
	"product-studio/internal/settings/domain/model"
	"product-studio/internal/shared/logger"
	"product-studio/internal/shared/utils"
	"product-studio/internal/studio/shell"
	"product-studio/internal/studio/viewer"

	"github.com/gofiber/fiber/v2"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryRepository struct {
	mu        sync.Mutex
	snapshots []model.ConfigurationSnapshot
}

func (r *memoryRepository) Insert(ctx context.Context, s *model.ConfigurationSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	r.snapshots = append(r.snapshots, *s)
	return nil
}

func (r *memoryRepository) FindLatest(ctx context.Context) (*model.ConfigurationSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, nil
	}
	sorted := append([]model.ConfigurationSnapshot(nil), r.snapshots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	return &sorted[0], nil
}

func (r *memoryRepository) PruneOlderThanNewest(ctx context.Context, keep int) (int64, error) {
	return 0, nil
}

func (r *memoryRepository) Ping(ctx context.Context) error { return nil }

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

type notes struct {
	mu   sync.Mutex
	list []string
}

func (n *notes) Notify(level shell.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, string(level)+": "+message)
}

// startServer runs the settings API on a loopback port and returns its base URL
func startServer(t *testing.T, cfg *settingsconfig.SettingsConfig) (string, *memoryRepository) {
	t.Helper()
	if cfg == nil {
		cfg = settingsconfig.DefaultSettingsConfig()
	}
	repo := &memoryRepository{}
	module, err := settings.NewSettingsModuleWithRepository(logger.NewNopLogger(), repo, nil, cfg)
	require.NoError(t, err)
	module.Start(context.Background())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	module.RegisterRoutes(app.Group("/api"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = module.Stop()
	})

	return "http://" + ln.Addr().String() + "/api", repo
}

func cubeGLB(t *testing.T) []byte {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: "cube", Primitives: []*gltf.Primitive{{}}})

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, logger.NewNopLogger())
	require.NoError(t, err)
	return c.WithTimeout(5 * time.Second)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api", logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrRelativeBaseURL)
}

func TestClient_UploadRoundTrip(t *testing.T) {
	baseURL, repo := startServer(t, nil)
	c := newClient(t, baseURL)
	glb := cubeGLB(t)

	url, err := c.Upload(context.Background(), "cube.glb", "", glb)
	require.NoError(t, err)

	decoded, err := model.ParseDataURI(url)
	require.NoError(t, err)
	assert.Equal(t, "model/gltf-binary", decoded.MimeType)
	assert.Equal(t, glb, decoded.Data)
	assert.Zero(t, repo.count())
}

func TestClient_UploadRejectedByPolicy(t *testing.T) {
	cfg := settingsconfig.DefaultSettingsConfig()
	cfg.UploadPolicy = "mime.startsWith('model/')"
	baseURL, _ := startServer(t, cfg)
	c := newClient(t, baseURL)

	_, err := c.Upload(context.Background(), "notes.txt", "text/plain", []byte("hi"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, apiErr.Status)
	assert.Equal(t, "upload_rejected", apiErr.Message)
}

func TestClient_SaveAndLatest(t *testing.T) {
	baseURL, _ := startServer(t, nil)
	c := newClient(t, baseURL)
	ctx := context.Background()

	latest, err := c.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	want := shell.SettingsPayload{ModelURL: "data:model/gltf-binary;base64,AQ==", BackgroundColor: "#ff0000", IsWireframe: true}
	require.NoError(t, c.Save(ctx, want))

	latest, err = c.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, &want, latest)
}

func TestClient_SaveValidationError(t *testing.T) {
	baseURL, _ := startServer(t, nil)
	c := newClient(t, baseURL)

	err := c.Save(context.Background(), shell.SettingsPayload{BackgroundColor: "#000"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, fiber.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_settings", apiErr.ServerMessage())
	assert.Equal(t, "Save Failed: invalid_settings", shell.SaveFailedMessage(err))
}

func TestClient_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newClient(t, "http://"+addr+"/api")
	_, err = c.Latest(context.Background())
	assert.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1/api")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Save(ctx, shell.SettingsPayload{ModelURL: "x"}), context.Canceled)
}

func TestClient_Watch(t *testing.T) {
	baseURL, _ := startServer(t, nil)
	c := newClient(t, baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan shell.SettingsPayload, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(p shell.SettingsPayload) {
			select {
			case received <- p:
			default:
			}
		})
	}()

	want := shell.SettingsPayload{ModelURL: "data:a;base64,AA==", BackgroundColor: "#00ff00"}
	// the subscription may not be registered yet, so keep saving until one arrives
	require.Eventually(t, func() bool {
		if !assert.NoError(t, c.Save(context.Background(), want)) {
			return false
		}
		select {
		case got := <-received:
			return assert.Equal(t, want, got)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestMimeTypeFor(t *testing.T) {
	assert.Equal(t, "model/gltf-binary", MimeTypeFor("Cube.GLB"))
	assert.Equal(t, "model/gltf+json", MimeTypeFor("scene.gltf"))
	assert.Equal(t, "application/octet-stream", MimeTypeFor("blob"))
}

// TestStudio_EndToEnd walks a full session: empty store, upload, restyle, save, reload.
func TestStudio_EndToEnd(t *testing.T) {
	baseURL, repo := startServer(t, nil)
	c := newClient(t, baseURL)
	ctx := context.Background()
	loader := viewer.NewGLTFLoader()

	session := shell.New(c, &notes{}, loader, logger.NewNopLogger())
	require.NoError(t, session.Load(ctx))
	assert.Empty(t, session.State().ModelURL)

	scene, err := session.Scene(ctx)
	require.NoError(t, err)
	assert.True(t, scene.Placeholder)

	require.NoError(t, session.Upload(ctx, "cube.glb", "model/gltf-binary", cubeGLB(t)))
	scene, err = session.Scene(ctx)
	require.NoError(t, err)
	require.False(t, scene.Placeholder)
	assert.Equal(t, "cube", scene.Meshes[0].Name)

	session.Apply(func(s shell.State) shell.State { return shell.SetBackground(s, "#112233") })
	require.NoError(t, session.Save(ctx))
	assert.Equal(t, 1, repo.count())

	reloaded := shell.New(c, &notes{}, loader, logger.NewNopLogger())
	require.NoError(t, reloaded.Load(ctx))

	latest, err := c.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, &shell.SettingsPayload{
		ModelURL:        session.State().ModelURL,
		BackgroundColor: "#112233",
		IsWireframe:     false,
	}, latest)
	assert.Equal(t, session.State().Settings(), reloaded.State().Settings())
}

func TestClient_SendsSessionHeader(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/api/settings", func(c *fiber.Ctx) error {
		mu.Lock()
		seen = append(seen, c.Get(SessionIDHeader))
		mu.Unlock()
		return c.JSON(fiber.Map{})
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	c := newClient(t, "http://"+ln.Addr().String()+"/api")
	_, err = c.Latest(context.Background())
	require.NoError(t, err)
	_, err = c.Latest(utils.WithSessionID(context.Background(), "session-7"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "session-7"}, seen)
	assert.Equal(t, httpadapter.SessionIDHeader, SessionIDHeader)
}
