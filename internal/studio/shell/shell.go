package shell

import (
	"context"
	"errors"
	"sync"

	"product-studio/internal/shared/logger"
	"product-studio/internal/shared/utils"
	"product-studio/internal/studio/viewer"

	"github.com/google/uuid"
)

// User-facing notification texts
const (
	MsgUploadSucceeded = "Model uploaded successfully!"
	MsgUploadFailed    = "Upload failed! Please try again."
	MsgNoModel         = "Please upload a model first!"
	MsgSaveSucceeded   = "Configuration Saved Successfully!"
	msgSaveFailedFmt   = "Save Failed: %s"
)

// ErrNoModel is returned by Save when there is nothing to save
var ErrNoModel = errors.New("no model uploaded")

// Backend is the settings HTTP surface as seen by the shell
type Backend interface {
	Upload(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
	Save(ctx context.Context, settings SettingsPayload) error
	// Latest returns nil when nothing has been saved.
	Latest(ctx context.Context) (*SettingsPayload, error)
}

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows transient messages to the user
type Notifier interface {
	Notify(level Level, message string)
}

// Shell owns the state of one studio session. Every backend call carries the
// session id in its context.
type Shell struct {
	mu        sync.Mutex
	state     State
	sessionID string
	backend   Backend
	notifier  Notifier
	loader    viewer.Loader
	log       logger.Logger
}

// New creates a shell in the initial state
func New(backend Backend, notifier Notifier, loader viewer.Loader, log logger.Logger) *Shell {
	return &Shell{
		state:     NewState(),
		sessionID: uuid.NewString(),
		backend:   backend,
		notifier:  notifier,
		loader:    loader,
		log:       log.WithComponent("studio-shell"),
	}
}

// SessionID identifies this shell to the settings API
func (s *Shell) SessionID() string {
	return s.sessionID
}

func (s *Shell) sessionContext(ctx context.Context) context.Context {
	return utils.WithSessionID(ctx, s.sessionID)
}

// State returns a copy of the current state
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Hotspots = append([]Hotspot(nil), s.state.Hotspots...)
	return st
}

// Apply runs a pure action against the current state
func (s *Shell) Apply(action func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = action(s.state)
	return s.state
}

// Load seeds the state from the latest saved snapshot. On failure the state is left as it was.
func (s *Shell) Load(ctx context.Context) error {
	ctx = s.sessionContext(ctx)
	snapshot, err := s.backend.Latest(ctx)
	if err != nil {
		s.log.WithContext(ctx).Errorf("Failed to load settings: %v", err)
		return err
	}
	s.Apply(func(st State) State { return SeedFromSnapshot(st, snapshot) })
	return nil
}

// Upload sends a model file and adopts the returned reference. Overlapping
// uploads are not guarded against; the last response wins.
func (s *Shell) Upload(ctx context.Context, fileName, mimeType string, data []byte) error {
	ctx = s.sessionContext(ctx)
	s.Apply(BeginUpload)

	url, err := s.backend.Upload(ctx, fileName, mimeType, data)
	if err != nil {
		s.Apply(UploadFailed)
		s.log.WithContext(ctx).Warnf("Upload of %s failed: %v", fileName, err)
		s.notify(LevelError, MsgUploadFailed)
		return err
	}

	s.Apply(func(st State) State { return UploadSucceeded(st, url) })
	s.notify(LevelSuccess, MsgUploadSucceeded)
	return nil
}

// Save persists the current background, wireframe flag and model reference.
// Without a model it notifies the user and makes no request.
func (s *Shell) Save(ctx context.Context) error {
	settings := s.State().Settings()
	if settings.ModelURL == "" {
		s.notify(LevelError, MsgNoModel)
		return ErrNoModel
	}

	ctx = s.sessionContext(ctx)
	if err := s.backend.Save(ctx, settings); err != nil {
		s.log.WithContext(ctx).Errorf("Save failed: %v", err)
		s.notify(LevelError, SaveFailedMessage(err))
		return err
	}
	s.notify(LevelSuccess, MsgSaveSucceeded)
	return nil
}

// Pick handles a click reported by the viewer and adds one hotspot at point.
// Clicks on a placeholder scene are ignored.
func (s *Shell) Pick(scene *viewer.Scene, point viewer.Vec3) bool {
	return viewer.Pick(scene, point, func(p viewer.Vec3) {
		s.Apply(func(st State) State { return AddHotspot(st, p) })
	})
}

// Scene composes the viewer scene for the current state
func (s *Shell) Scene(ctx context.Context) (*viewer.Scene, error) {
	st := s.State()
	return viewer.Compose(ctx, st.ViewerParams(), st.Markers(), s.loader)
}

func (s *Shell) notify(level Level, message string) {
	if s.notifier != nil {
		s.notifier.Notify(level, message)
	}
}
